package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfigYAML = `run:
  width: 3
  height: 1
periods:
  - label: "1999"
    scene_dir: /data/1999
classes:
  - label: vegetation
    color: "#00ff00"
    mandatory: true
    polygon: [[0, 0], [0.1, 0], [0.1, 0.1]]
  - label: urban
    mandatory: true
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "landcover ") {
		t.Errorf("output = %q", out)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	computed := filepath.Join(dir, "computed.txt")
	ref := filepath.Join(dir, "reference.txt")
	os.WriteFile(computed, []byte("; computed\n0.1\n0.2\n0.3\n\n1\n2\n3\n"), 0644)
	os.WriteFile(ref, []byte("; reference\n0.1\n0.2\n0.3\n\n2\n4\n6\n"), 0644)

	out, err := execute(t, "validate", "--label", "1999", computed, ref)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "Root mean square deviations for 1999:") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "series 1: 0.000000 (slope 1.0000") {
		t.Errorf("missing series 1:\n%s", out)
	}
	if !strings.Contains(out, "series 2:") || !strings.Contains(out, "slope 2.0000") {
		t.Errorf("missing series 2:\n%s", out)
	}
}

func TestValidateSeriesMismatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	os.WriteFile(a, []byte("1\n2\n\n3\n4\n"), 0644)
	os.WriteFile(b, []byte("1\n2\n"), 0644)

	if _, err := execute(t, "validate", a, b); err == nil {
		t.Error("expected error for differing series counts")
	}
}

func TestConfigConvertAndCheck(t *testing.T) {
	dir := t.TempDir()
	yamlFile := filepath.Join(dir, "config.yaml")
	dbFile := filepath.Join(dir, "db", "config.db")
	if err := os.WriteFile(yamlFile, []byte(testConfigYAML), 0644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	out, err := execute(t, "config", "convert", yamlFile, dbFile)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Loaded 1 periods, 2 classes") {
		t.Errorf("convert output:\n%s", out)
	}

	if _, err := execute(t, "config", "convert", yamlFile, dbFile); err == nil {
		t.Error("expected refusal to overwrite without --force")
	}

	out, err = execute(t, "--config-backend", "sqlite", "--config", dbFile, "config", "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "class vegetation (mandatory): 3 default vertices") {
		t.Errorf("check output:\n%s", out)
	}
}

func TestUnsupportedBackend(t *testing.T) {
	if _, err := execute(t, "--config-backend", "etcd", "config", "check"); err == nil {
		t.Error("expected error for unsupported backend")
	}
}
