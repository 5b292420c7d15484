package reflectance

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/solar"
)

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }

// ZenithFromElevation converts a scene's sun elevation to the solar zenith angle.
func ZenithFromElevation(elevationDeg float64) float64 {
	return 90.0 - elevationDeg
}

// EarthSunDistance returns the Earth-Sun distance in AU at the given instant.
func EarthSunDistance(t time.Time) float64 {
	jd := julian.TimeToJD(t.UTC())
	return solar.Radius(base.J2000Century(jd))
}

func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
func fixAngle(a float64) float64   { return a - 360.0*math.Floor(a/360.0) }

// SunPosition is the apparent position of the sun seen from a ground point.
type SunPosition struct {
	ZenithDeg      float64
	ElevationDeg   float64
	DeclinationDeg float64
	HourAngleDeg   float64
	EqOfTimeMin    float64
}

// SolarPosition computes where the sun is at t for a ground point at
// lat/lon (degrees, east positive). No refraction correction is applied, so
// ElevationDeg is 90 - ZenithDeg.
func SolarPosition(lat, lon float64, t time.Time) SunPosition {
	t = t.UTC()
	T := base.J2000Century(julian.TimeToJD(t))

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	C := math.Sin(degToRad(M))*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(degToRad(2*M))*(0.019993-T*0.000101) +
		math.Sin(degToRad(3*M))*0.000289
	omega := 125.04 - 1934.136*T
	lambda := L0 + C - 0.00569 - 0.00478*math.Sin(degToRad(omega))
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	decl := math.Asin(math.Sin(degToRad(eps0)) * math.Sin(degToRad(lambda)))

	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	eqTime := radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4

	utcMin := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60.0 + float64(t.Nanosecond())/6e10
	trueSolarMin := utcMin + 4*lon + eqTime
	ha := trueSolarMin/4 - 180

	latRad := degToRad(lat)
	cosZen := math.Sin(latRad)*math.Sin(decl) + math.Cos(latRad)*math.Cos(decl)*math.Cos(degToRad(ha))
	zen := radToDeg(math.Acos(math.Max(-1, math.Min(1, cosZen))))

	return SunPosition{
		ZenithDeg:      zen,
		ElevationDeg:   90 - zen,
		DeclinationDeg: radToDeg(decl),
		HourAngleDeg:   ha,
		EqOfTimeMin:    eqTime,
	}
}
