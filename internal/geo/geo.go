package geo

// 坐标与地理围栏计算。
//
// 存储边界上的规范顺序是 "longitude,latitude"（经度在前），与历史数据保持一致。
// 旧系统的两个版本在这一点上互相矛盾过，所有读写必须经过 ParseLocation /
// LocationString，禁止在别处手工拆分坐标串。

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadius 平均地球半径，米
const EarthRadius = 6371000.0

// Coordinate 内存中的坐标，字段显式命名避免顺序歧义
type Coordinate struct {
	Lat float64 // 纬度 [-90, 90]
	Lng float64 // 经度 [-180, 180]
}

// NewCoordinate 构造坐标并校验取值范围
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	if lat < -90 || lat > 90 {
		return Coordinate{}, fmt.Errorf("latitude %v out of range [-90,90]", lat)
	}
	if lng < -180 || lng > 180 {
		return Coordinate{}, fmt.Errorf("longitude %v out of range [-180,180]", lng)
	}
	return Coordinate{Lat: lat, Lng: lng}, nil
}

// ParseLocation 解析存储格式 "longitude,latitude"
func ParseLocation(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("invalid location string %q: want \"lng,lat\"", s)
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}

	return NewCoordinate(lat, lng)
}

// LocationString 输出存储格式 "longitude,latitude"，与 ParseLocation 严格互逆
func (c Coordinate) LocationString() string {
	return strconv.FormatFloat(c.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

// Distance 计算两点间的 Haversine 大圆距离，米
func Distance(a, b Coordinate) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return 2 * EarthRadius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Within 判断 point 是否在以 center 为圆心、radius 米为半径的围栏内，
// 同时返回计算出的距离供审计日志使用
func Within(center, point Coordinate, radius float64) (bool, float64) {
	d := Distance(center, point)
	return d <= radius, d
}
