package weather

import (
	"encoding/json"
	"testing"
	"time"
)

var testZone = time.FixedZone("CST", 8*3600)

const currentFixture = `{
  "coord": {"lon": 121.4737, "lat": 31.2304},
  "weather": [{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}],
  "base": "stations",
  "main": {"temp": 288.15, "feels_like": 287.6, "temp_min": 287.0, "temp_max": 289.2, "pressure": 1016, "humidity": 82},
  "visibility": 9000,
  "wind": {"speed": 4.1, "deg": 70, "gust": 6.3},
  "rain": {"1h": 0.42},
  "clouds": {"all": 75},
  "dt": 1705298400,
  "sys": {"type": 1, "id": 9659, "country": "CN", "sunrise": 1705273560, "sunset": 1705310760},
  "timezone": 28800,
  "id": 1796236,
  "name": "Shanghai",
  "cod": 200
}`

type fixtureSample struct {
	dt     int64
	temp   float64
	rain3h float64
	snow3h float64
}

// forecastSamples returns n samples spaced three hours apart starting at start.
func forecastSamples(start time.Time, n int) []fixtureSample {
	out := make([]fixtureSample, n)
	for i := range out {
		out[i] = fixtureSample{
			dt:   start.Add(time.Duration(i) * 3 * time.Hour).Unix(),
			temp: 270 + float64(i%7)*1.5 - float64(i%3),
		}
	}
	return out
}

func forecastJSON(t *testing.T, samples []fixtureSample) []byte {
	t.Helper()

	list := make([]map[string]any, 0, len(samples))
	for i, s := range samples {
		item := map[string]any{
			"dt": s.dt,
			"main": map[string]any{
				"temp":       s.temp,
				"feels_like": s.temp - 1,
				"pressure":   1010 + i%5,
				"humidity":   60 + i%10,
			},
			"weather": []map[string]any{
				{"id": 800 + i%4, "main": "Clouds", "description": "scattered clouds", "icon": "03d"},
			},
			"clouds":     map[string]any{"all": 40},
			"wind":       map[string]any{"speed": 3.2, "deg": 120, "gust": 5.0},
			"visibility": 10000,
			"pop":        0.2,
			"dt_txt":     time.Unix(s.dt, 0).UTC().Format("2006-01-02 15:04:05"),
		}
		if s.rain3h > 0 {
			item["rain"] = map[string]any{"3h": s.rain3h}
		}
		if s.snow3h > 0 {
			item["snow"] = map[string]any{"3h": s.snow3h}
		}
		list = append(list, item)
	}

	doc := map[string]any{
		"cod":  "200",
		"cnt":  len(samples),
		"list": list,
		"city": map[string]any{
			"id":       1796236,
			"name":     "Shanghai",
			"coord":    map[string]any{"lat": 31.2304, "lon": 121.4737},
			"country":  "CN",
			"timezone": 28800,
			"sunrise":  1705273560,
			"sunset":   1705310760,
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal forecast fixture: %v", err)
	}
	return b
}

func airQualityJSON(t *testing.T, start int64, n int) []byte {
	t.Helper()

	list := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, map[string]any{
			"dt":   start + int64(i)*3600,
			"main": map[string]any{"aqi": 1 + i%5},
			"components": map[string]any{
				"co": 230.31, "no": 0.1, "no2": 12.5, "o3": 60.1,
				"so2": 3.4, "pm2_5": 8.2, "pm10": 12.7, "nh3": 0.9,
			},
		})
	}
	b, err := json.Marshal(map[string]any{
		"coord": map[string]any{"lat": 31.2304, "lon": 121.4737},
		"list":  list,
	})
	if err != nil {
		t.Fatalf("marshal air quality fixture: %v", err)
	}
	return b
}
