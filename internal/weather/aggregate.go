package weather

import "time"

const noDay = -1

// Accumulator seeds; any real temperature in kelvin or celsius lies between them.
const (
	minTempSeed = 1000.0
	maxTempSeed = -1000.0
)

// dayKey returns the calendar day of dt in loc as yyyymmdd.
func dayKey(dt int64, loc *time.Location) int {
	y, m, d := time.Unix(dt, 0).In(loc).Date()
	return y*10000 + int(m)*100 + d
}

// bucketDays derives dst.Daily from chronologically ordered 3-hour samples.
//
// Each day's slot is populated from its first sample; min/max accumulate
// across every sample of the day and are written when the next day starts,
// and once more after the loop for the last day. The four day-parts all take
// the first sample's value since 3-hour buckets cannot place morning, day,
// evening and night reliably. Rain and snow keep the raw 3h accumulation.
func bucketDays(samples []wireSample, city wireCity, loc *time.Location, dst *Model) {
	dst.Daily = [DailyCapacity]DailyAggregate{}

	idx := 0
	lastDay := noDay
	minTemp, maxTemp := minTempSeed, maxTempSeed

	for i := range samples {
		s := &samples[i]
		day := dayKey(*s.Dt, loc)

		if day != lastDay && lastDay != noDay {
			dst.Daily[idx].Temp.Min = minTemp
			dst.Daily[idx].Temp.Max = maxTemp
			minTemp, maxTemp = minTempSeed, maxTempSeed
			idx++
		}
		if idx >= DailyCapacity {
			break
		}

		temp := *s.Main.Temp
		if day != lastDay {
			dst.Daily[idx] = newDailyAggregate(s, city, temp)
		}
		lastDay = day

		if temp < minTemp {
			minTemp = temp
		}
		if temp > maxTemp {
			maxTemp = temp
		}
	}

	if lastDay != noDay && idx < DailyCapacity {
		dst.Daily[idx].Temp.Min = minTemp
		dst.Daily[idx].Temp.Max = maxTemp
		idx++
	}
	dst.DailyLen = idx
}

func newDailyAggregate(s *wireSample, city wireCity, temp float64) DailyAggregate {
	d := DailyAggregate{
		Dt:         *s.Dt,
		Temp:       DayTemps{DayParts: DayParts{Morn: temp, Day: temp, Eve: temp, Night: temp}},
		Pressure:   toInt(s.Main.Pressure, 0),
		Humidity:   toInt(s.Main.Humidity, 0),
		Clouds:     toInt(s.Clouds.All, 0),
		Visibility: toInt(s.Visibility, DefaultVisibility),
		WindSpeed:  valueOr(s.Wind.Speed, 0),
		WindDeg:    toInt(s.Wind.Deg, 0),
		WindGust:   valueOr(s.Wind.Gust, 0),
		Pop:        valueOr(s.Pop, 0),
		Rain:       valueOr(s.Rain.ThreeHour, 0),
		Snow:       valueOr(s.Snow.ThreeHour, 0),
		Weather:    firstCondition(s.Weather),
	}
	if city.Sunrise != nil && city.Sunset != nil {
		d.Sunrise = *city.Sunrise
		d.Sunset = *city.Sunset
	}
	if s.Main.FeelsLike != nil {
		fl := *s.Main.FeelsLike
		d.FeelsLike = DayParts{Morn: fl, Day: fl, Eve: fl, Night: fl}
	}
	return d
}
