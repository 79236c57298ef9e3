package utils

import "math"

const earthRadiusKm = 6371.0

// HaversineKm 计算两点之间的球面距离（千米）
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// EstimatedTravelMinutes 以固定速度估算两点之间的出行时间（分钟）
func EstimatedTravelMinutes(lat1, lon1, lat2, lon2, speedKmh float64) float64 {
	return HaversineKm(lat1, lon1, lat2, lon2) / speedKmh * 60
}
