package common

// All units are in metric:
// - Speed is in m/s
// - Distance and elevation are in meters

// EarthRadiusEquatorial is the WGS84 semi-major axis.
// The flat-earth projection uses it as its single radius.
const EarthRadiusEquatorial = 6378137.0

const SpeedOfWalkingSlow = 0.5 // or 1.8 km/h or 1.1 mph
const SpeedOfWalkingMean = 1.2 // or 4.3 km/h or 2.7 mph
const SpeedOfWalkingMax = 1.78 // or 6.4 km/h or 4 mph

// Walkers in a park don't change speed much, m/s^2.
const AccelerationOfWalking = 0.1

const ElevationOfEverest = 8848.0
const ElevationOfDeadSea = -430.0
