package domain

import "time"

// Trip 一次运行所需的全部输入（已经准备好，不再涉及外部 IO）
type Trip struct {
	Places    []Place
	Rows      []int // Rows[i] 是 Places[i] 在输入地点表中的下标，为空时即为 i
	Hotel     Place
	Matrix    *TravelMatrix
	StartDate time.Time
	EndDate   time.Time
}
