package fixed

func Mean(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}
	sum := Zero
	for _, point := range points {
		sum = sum.Add(point)
	}
	return sum.DivInt(len(points))
}

func StdDev(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}
	sum := Zero
	for _, point := range points {
		diff := point.Sub(mean)
		sum = sum.Add(diff.Mul(diff))
	}
	return sum.DivInt(len(points)).Sqrt()
}

func SharpeRatio(points []Point, riskFreeRate Point) Point {
	mean := Mean(points)
	volatility := StdDev(points, mean)
	if volatility.IsZero() {
		return Zero
	}
	return mean.Sub(riskFreeRate).Div(volatility)
}

// MaxDrawdown returns the largest peak-to-trough decline of an equity curve,
// expressed as a positive fraction of the peak. Zero for flat or rising curves.
func MaxDrawdown(curve []Point) Point {
	if len(curve) == 0 {
		return Zero
	}
	peak := curve[0]
	maxDD := Zero
	for _, v := range curve[1:] {
		if v.Gt(peak) {
			peak = v
			continue
		}
		if peak.IsZero() {
			continue
		}
		dd := peak.Sub(v).Div(peak)
		if dd.Gt(maxDD) {
			maxDD = dd
		}
	}
	return maxDD
}
