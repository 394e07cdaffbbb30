package weather

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"time"
)

// Upper bounds for each payload. A body larger than its bound fails with
// DecodeNoMemory instead of growing the buffer.
const (
	MaxCurrentBytes    = 4 << 10
	MaxForecastBytes   = 64 << 10
	MaxAirQualityBytes = 16 << 10
)

type wireCondition struct {
	ID          *int    `json:"id"`
	Main        *string `json:"main"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

type wireMain struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	Pressure  *float64 `json:"pressure"`
	Humidity  *float64 `json:"humidity"`
}

type wireWind struct {
	Speed *float64 `json:"speed"`
	Deg   *float64 `json:"deg"`
	Gust  *float64 `json:"gust"`
}

type wirePrecip struct {
	OneHour   *float64 `json:"1h"`
	ThreeHour *float64 `json:"3h"`
}

type wireClouds struct {
	All *float64 `json:"all"`
}

type wireCoord struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// wireSample is shared by the current endpoint and forecast list entries.
type wireSample struct {
	Dt         *int64          `json:"dt"`
	Main       wireMain        `json:"main"`
	Visibility *float64        `json:"visibility"`
	Clouds     wireClouds      `json:"clouds"`
	Wind       wireWind        `json:"wind"`
	Pop        *float64        `json:"pop"`
	Rain       wirePrecip      `json:"rain"`
	Snow       wirePrecip      `json:"snow"`
	Weather    []wireCondition `json:"weather"`
}

type wireCurrent struct {
	wireSample
	Sys struct {
		Sunrise *int64 `json:"sunrise"`
		Sunset  *int64 `json:"sunset"`
	} `json:"sys"`
}

type wireCity struct {
	Name     *string   `json:"name"`
	Coord    wireCoord `json:"coord"`
	Timezone *int      `json:"timezone"`
	Sunrise  *int64    `json:"sunrise"`
	Sunset   *int64    `json:"sunset"`
}

type wireForecast struct {
	City wireCity     `json:"city"`
	List []wireSample `json:"list"`
}

type wireAirQuality struct {
	Coord wireCoord `json:"coord"`
	List  []struct {
		Dt   *int64 `json:"dt"`
		Main struct {
			AQI *int `json:"aqi"`
		} `json:"main"`
		Components struct {
			CO   *float64 `json:"co"`
			NO   *float64 `json:"no"`
			NO2  *float64 `json:"no2"`
			O3   *float64 `json:"o3"`
			SO2  *float64 `json:"so2"`
			PM25 *float64 `json:"pm2_5"`
			PM10 *float64 `json:"pm10"`
			NH3  *float64 `json:"nh3"`
		} `json:"components"`
	} `json:"list"`
}

// DecodeCurrent parses a current-weather payload into dst. UV index is not
// provided by this endpoint and is always zero; missing gust, rain and snow
// default to zero.
func DecodeCurrent(r io.Reader, dst *Current) error {
	var w wireCurrent
	if err := decodeBounded(r, MaxCurrentBytes, "current", &w); err != nil {
		return err
	}
	if w.Dt == nil {
		return &DecodeError{Code: DecodeInvalidInput, Stage: "current.dt"}
	}
	if w.Main.Temp == nil {
		return &DecodeError{Code: DecodeInvalidInput, Stage: "current.main"}
	}

	snap := w.snapshot()
	snap.Rain1h = valueOr(w.Rain.OneHour, 0)
	snap.Snow1h = valueOr(w.Snow.OneHour, 0)
	snap.UVI = 0

	*dst = Current{
		Snapshot: snap,
		Sunrise:  valueOr(w.Sys.Sunrise, 0),
		Sunset:   valueOr(w.Sys.Sunset, 0),
	}
	return nil
}

// DecodeForecast parses a 3-hour forecast payload into dst. The first sample
// becomes dst.Current, samples fill dst.Hourly in order, and dst.Daily is
// derived by bucketing samples into calendar days of loc. A nil loc means
// time.Local.
func DecodeForecast(r io.Reader, loc *time.Location, dst *Model) error {
	var w wireForecast
	if err := decodeBounded(r, MaxForecastBytes, "forecast", &w); err != nil {
		return err
	}
	if len(w.List) == 0 {
		return &DecodeError{Code: DecodeInvalidInput, Stage: "forecast.list"}
	}
	for i := range w.List {
		if w.List[i].Dt == nil {
			return &DecodeError{Code: DecodeInvalidInput, Stage: "forecast.list.dt"}
		}
		if w.List[i].Main.Temp == nil {
			return &DecodeError{Code: DecodeInvalidInput, Stage: "forecast.list.main"}
		}
	}
	if loc == nil {
		loc = time.Local
	}

	dst.Lat = valueOr(w.City.Coord.Lat, 0)
	dst.Lon = valueOr(w.City.Coord.Lon, 0)
	dst.City = valueOr(w.City.Name, "")
	dst.TimezoneOffset = valueOr(w.City.Timezone, 0)

	first := w.List[0].hourly()
	dst.Current = Current{Snapshot: first}
	if w.City.Sunrise != nil && w.City.Sunset != nil {
		dst.Current.Sunrise = *w.City.Sunrise
		dst.Current.Sunset = *w.City.Sunset
	}

	dst.HourlyLen = 0
	for i := range w.List {
		if dst.HourlyLen >= HourlyCapacity {
			break
		}
		dst.Hourly[dst.HourlyLen] = w.List[i].hourly()
		dst.HourlyLen++
	}

	bucketDays(w.List, w.City, loc, dst)
	return nil
}

// DecodeAirQuality parses an air pollution history payload into dst,
// keeping at most AirQualityCapacity records.
func DecodeAirQuality(r io.Reader, dst *AirQuality) error {
	var w wireAirQuality
	if err := decodeBounded(r, MaxAirQualityBytes, "air_pollution", &w); err != nil {
		return err
	}

	dst.Lat = valueOr(w.Coord.Lat, 0)
	dst.Lon = valueOr(w.Coord.Lon, 0)
	dst.Len = 0
	for _, rec := range w.List {
		c := rec.Components
		dst.Samples[dst.Len] = AirQualitySample{
			Dt:   valueOr(rec.Dt, 0),
			AQI:  valueOr(rec.Main.AQI, 0),
			CO:   valueOr(c.CO, 0),
			NO:   valueOr(c.NO, 0),
			NO2:  valueOr(c.NO2, 0),
			O3:   valueOr(c.O3, 0),
			SO2:  valueOr(c.SO2, 0),
			PM25: valueOr(c.PM25, 0),
			PM10: valueOr(c.PM10, 0),
			NH3:  valueOr(c.NH3, 0),
		}
		dst.Len++
		if dst.Len == AirQualityCapacity {
			break
		}
	}
	return nil
}

// snapshot converts the fields common to every endpoint. Precipitation is
// left to the caller since its unit differs per endpoint.
func (s *wireSample) snapshot() Snapshot {
	return Snapshot{
		Dt:         valueOr(s.Dt, 0),
		Temp:       valueOr(s.Main.Temp, 0),
		FeelsLike:  valueOr(s.Main.FeelsLike, 0),
		Pressure:   toInt(s.Main.Pressure, 0),
		Humidity:   toInt(s.Main.Humidity, 0),
		Clouds:     toInt(s.Clouds.All, 0),
		Visibility: toInt(s.Visibility, 0),
		WindSpeed:  valueOr(s.Wind.Speed, 0),
		WindDeg:    toInt(s.Wind.Deg, 0),
		WindGust:   valueOr(s.Wind.Gust, 0),
		Pop:        valueOr(s.Pop, 0),
		Weather:    firstCondition(s.Weather),
	}
}

// hourly converts a 3-hour forecast sample; accumulations are divided by 3
// to get an hourly rate.
func (s *wireSample) hourly() Snapshot {
	snap := s.snapshot()
	if s.Rain.ThreeHour != nil {
		snap.Rain1h = *s.Rain.ThreeHour / 3
	}
	if s.Snow.ThreeHour != nil {
		snap.Snow1h = *s.Snow.ThreeHour / 3
	}
	return snap
}

func firstCondition(items []wireCondition) Condition {
	if len(items) == 0 {
		return Condition{}
	}
	c := items[0]
	return Condition{
		ID:          valueOr(c.ID, 0),
		Main:        valueOr(c.Main, ""),
		Description: valueOr(c.Description, ""),
		Icon:        valueOr(c.Icon, ""),
	}
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func toInt(p *float64, def int) int {
	if p == nil {
		return def
	}
	return int(math.Round(*p))
}

// decodeBounded decodes a single JSON document of at most limit bytes from r.
func decodeBounded(r io.Reader, limit int64, stage string, v any) error {
	br := &boundedReader{r: r, remaining: limit}
	err := json.NewDecoder(br).Decode(v)
	if err == nil {
		return nil
	}
	return &DecodeError{Code: classifyDecodeError(err, br.overflow), Stage: stage, Err: err}
}

func classifyDecodeError(err error, overflow bool) DecodeCode {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case overflow:
		return DecodeNoMemory
	case errors.Is(err, io.EOF):
		return DecodeEmptyInput
	case errors.Is(err, io.ErrUnexpectedEOF):
		return DecodeIncompleteInput
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return DecodeInvalidInput
	default:
		// read failure mid-stream
		return DecodeIncompleteInput
	}
}

// boundedReader stops after remaining bytes and records whether the source
// had more to give.
type boundedReader struct {
	r         io.Reader
	remaining int64
	overflow  bool
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		var probe [1]byte
		if n, _ := io.ReadFull(b.r, probe[:]); n > 0 {
			b.overflow = true
		}
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	return n, err
}
