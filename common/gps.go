package common

/*
https://en.wikipedia.org/wiki/Decimal_degrees?useskin=vector

places 	degrees 	at equator
4 	0.0001 	11.1 m   individual street, large buildings
5 	0.00001 	1.11 m   individual trees, houses
6 	0.000001 	111 mm   individual visitors
7 	0.0000001 	11.1 mm  practical limit of commercial surveying
*/

const (
	// GPSPrecision4 is the precision for individual street, large buildings
	GPSPrecision4 = 4
	// GPSPrecision5 is the precision for individual trees, houses
	GPSPrecision5 = 5
	// GPSPrecision6 is the precision for individual visitors
	GPSPrecision6 = 6
	// GPSPrecision7 is the precision for practical limit of commercial surveying
	GPSPrecision7 = 7
)

// MetersPrecision is the rounding applied to meter values in reports.
const MetersPrecision = 2
