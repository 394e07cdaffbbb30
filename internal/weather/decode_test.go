package weather

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodeCurrent(t *testing.T) {
	var c Current
	if err := DecodeCurrent(strings.NewReader(currentFixture), &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Dt != 1705298400 {
		t.Errorf("expected dt 1705298400, got %d", c.Dt)
	}
	if c.Temp != 288.15 || c.FeelsLike != 287.6 {
		t.Errorf("unexpected temperatures: %v / %v", c.Temp, c.FeelsLike)
	}
	if c.Pressure != 1016 || c.Humidity != 82 {
		t.Errorf("unexpected pressure/humidity: %d / %d", c.Pressure, c.Humidity)
	}
	if c.Visibility != 9000 || c.Clouds != 75 {
		t.Errorf("unexpected visibility/clouds: %d / %d", c.Visibility, c.Clouds)
	}
	if c.WindSpeed != 4.1 || c.WindDeg != 70 || c.WindGust != 6.3 {
		t.Errorf("unexpected wind: %v %d %v", c.WindSpeed, c.WindDeg, c.WindGust)
	}
	if c.Sunrise != 1705273560 || c.Sunset != 1705310760 {
		t.Errorf("unexpected sun events: %d / %d", c.Sunrise, c.Sunset)
	}
	if c.Rain1h != 0.42 || c.Snow1h != 0 {
		t.Errorf("unexpected precipitation: rain %v snow %v", c.Rain1h, c.Snow1h)
	}
	if c.UVI != 0 {
		t.Errorf("expected uvi 0, got %v", c.UVI)
	}
	want := Condition{ID: 500, Main: "Rain", Description: "light rain", Icon: "10d"}
	if c.Weather != want {
		t.Errorf("expected condition %+v, got %+v", want, c.Weather)
	}
}

func TestDecodeCurrent_OptionalFieldsDefault(t *testing.T) {
	body := `{"dt": 100, "main": {"temp": 280}, "wind": {"speed": 1.5, "deg": 10}, "weather": []}`

	var c Current
	if err := DecodeCurrent(strings.NewReader(body), &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.WindGust != 0 || c.Rain1h != 0 || c.Snow1h != 0 {
		t.Errorf("expected zero defaults, got gust %v rain %v snow %v", c.WindGust, c.Rain1h, c.Snow1h)
	}
	if c.Weather != (Condition{}) {
		t.Errorf("expected empty condition, got %+v", c.Weather)
	}
}

func TestDecodeCurrent_Idempotent(t *testing.T) {
	var a, b Current
	if err := DecodeCurrent(strings.NewReader(currentFixture), &a); err != nil {
		t.Fatalf("first decode: %v", err)
	}
	if err := DecodeCurrent(strings.NewReader(currentFixture), &b); err != nil {
		t.Fatalf("second decode: %v", err)
	}
	if a != b {
		t.Errorf("decoding twice differs:\n%+v\n%+v", a, b)
	}
}

func TestDecodeCurrent_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		code  DecodeCode
		stage string
	}{
		{name: "empty", body: "", code: DecodeEmptyInput, stage: "current"},
		{name: "whitespace", body: "  \n", code: DecodeEmptyInput, stage: "current"},
		{name: "truncated", body: `{"dt": 1, "main": {"temp": 2`, code: DecodeIncompleteInput, stage: "current"},
		{name: "syntax", body: `{"dt": 1,, }`, code: DecodeInvalidInput, stage: "current"},
		{name: "wrong type", body: `{"dt": "yesterday"}`, code: DecodeInvalidInput, stage: "current"},
		{name: "array", body: `[1, 2, 3]`, code: DecodeInvalidInput, stage: "current"},
		{name: "missing dt", body: `{"main": {"temp": 2}}`, code: DecodeInvalidInput, stage: "current.dt"},
		{name: "missing main", body: `{"dt": 1}`, code: DecodeInvalidInput, stage: "current.main"},
		{
			name:  "oversized",
			body:  `{"dt": 1, "name": "` + strings.Repeat("x", MaxCurrentBytes) + `"}`,
			code:  DecodeNoMemory,
			stage: "current",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Current
			err := DecodeCurrent(strings.NewReader(tt.body), &c)

			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
			if de.Code != tt.code {
				t.Errorf("expected code %v, got %v", tt.code, de.Code)
			}
			if de.Stage != tt.stage {
				t.Errorf("expected stage %q, got %q", tt.stage, de.Stage)
			}
			if c != (Current{}) {
				t.Errorf("destination modified on failure: %+v", c)
			}
		})
	}
}

func TestDecodeForecast_CurrentAndHourly(t *testing.T) {
	start := time.Date(2024, 1, 15, 12, 0, 0, 0, testZone)
	samples := forecastSamples(start, 40)
	samples[0].rain3h = 6.0
	samples[1].snow3h = 1.5

	var m Model
	if err := DecodeForecast(bytes.NewReader(forecastJSON(t, samples)), testZone, &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.City != "Shanghai" || m.Lat != 31.2304 || m.Lon != 121.4737 || m.TimezoneOffset != 28800 {
		t.Errorf("unexpected city block: %q %v %v %d", m.City, m.Lat, m.Lon, m.TimezoneOffset)
	}
	if m.Current.Dt != samples[0].dt || m.Current.Temp != samples[0].temp {
		t.Errorf("current not taken from first sample: %+v", m.Current)
	}
	if m.Current.Sunrise != 1705273560 || m.Current.Sunset != 1705310760 {
		t.Errorf("current sun events not copied from city: %d / %d", m.Current.Sunrise, m.Current.Sunset)
	}
	if m.HourlyLen != 40 {
		t.Fatalf("expected 40 hourly entries, got %d", m.HourlyLen)
	}
	for i, h := range m.HourlySeries() {
		if h.Dt != samples[i].dt {
			t.Fatalf("hourly[%d] out of order: dt %d, want %d", i, h.Dt, samples[i].dt)
		}
		if h.UVI != 0 || h.DewPoint != 0 {
			t.Errorf("hourly[%d] expected zero uvi/dew point", i)
		}
	}
	if m.Hourly[1].Snow1h != 0.5 {
		t.Errorf("expected hourly snow 0.5, got %v", m.Hourly[1].Snow1h)
	}
}

func TestDecodeForecast_RainNormalizationAsymmetry(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, testZone)
	samples := forecastSamples(start, 16)
	samples[0].rain3h = 6.0

	var m Model
	if err := DecodeForecast(bytes.NewReader(forecastJSON(t, samples)), testZone, &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Hourly[0].Rain1h != 2.0 {
		t.Errorf("hourly rain: expected 2.0, got %v", m.Hourly[0].Rain1h)
	}
	if m.Current.Rain1h != 2.0 {
		t.Errorf("current rain: expected 2.0, got %v", m.Current.Rain1h)
	}
	if m.Daily[0].Rain != 6.0 {
		t.Errorf("daily rain: expected raw 6.0, got %v", m.Daily[0].Rain)
	}
}

func TestDecodeForecast_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		code  DecodeCode
		stage string
	}{
		{name: "empty", body: "", code: DecodeEmptyInput, stage: "forecast"},
		{name: "truncated", body: `{"city": {"name": "x"}, "list": [{"dt": 1,`, code: DecodeIncompleteInput, stage: "forecast"},
		{name: "no list", body: `{"city": {"name": "x"}}`, code: DecodeInvalidInput, stage: "forecast.list"},
		{name: "empty list", body: `{"list": []}`, code: DecodeInvalidInput, stage: "forecast.list"},
		{name: "sample without dt", body: `{"list": [{"main": {"temp": 1}}]}`, code: DecodeInvalidInput, stage: "forecast.list.dt"},
		{name: "sample without temp", body: `{"list": [{"dt": 1, "main": {}}]}`, code: DecodeInvalidInput, stage: "forecast.list.main"},
		{name: "list is object", body: `{"list": {"dt": 1}}`, code: DecodeInvalidInput, stage: "forecast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Model
			err := DecodeForecast(strings.NewReader(tt.body), testZone, &m)

			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
			if de.Code != tt.code || de.Stage != tt.stage {
				t.Errorf("expected %v at %q, got %v at %q", tt.code, tt.stage, de.Code, de.Stage)
			}
			if m.HourlyLen != 0 || m.DailyLen != 0 || m.Current.Dt != 0 {
				t.Errorf("destination modified on failure")
			}
		})
	}
}

func TestDecodeAirQuality(t *testing.T) {
	start := int64(1705200000)

	var aq AirQuality
	if err := DecodeAirQuality(bytes.NewReader(airQualityJSON(t, start, 5)), &aq); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aq.Len != 5 {
		t.Fatalf("expected 5 samples, got %d", aq.Len)
	}
	if aq.Lat != 31.2304 || aq.Lon != 121.4737 {
		t.Errorf("unexpected coord: %v %v", aq.Lat, aq.Lon)
	}
	s := aq.Samples[2]
	if s.Dt != start+2*3600 || s.AQI != 3 || s.CO != 230.31 || s.PM25 != 8.2 || s.NH3 != 0.9 {
		t.Errorf("unexpected sample: %+v", s)
	}
	latest, ok := aq.Latest()
	if !ok || latest.Dt != start+4*3600 {
		t.Errorf("unexpected latest sample: %+v (ok=%v)", latest, ok)
	}
}

func TestDecodeAirQuality_StopsAtCapacity(t *testing.T) {
	start := int64(1705200000)

	var aq AirQuality
	if err := DecodeAirQuality(bytes.NewReader(airQualityJSON(t, start, AirQualityCapacity+6)), &aq); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aq.Len != AirQualityCapacity {
		t.Fatalf("expected %d samples, got %d", AirQualityCapacity, aq.Len)
	}
	last := aq.Samples[AirQualityCapacity-1]
	if last.Dt != start+int64(AirQualityCapacity-1)*3600 {
		t.Errorf("last slot holds dt %d", last.Dt)
	}
}

func TestDecodeAirQuality_Invalid(t *testing.T) {
	var aq AirQuality
	err := DecodeAirQuality(strings.NewReader(`{"coord": {"lat": "north"}}`), &aq)

	var de *DecodeError
	if !errors.As(err, &de) || de.Code != DecodeInvalidInput || de.Stage != "air_pollution" {
		t.Fatalf("expected invalid input at air_pollution, got %v", err)
	}
}
