package weather

// Buffer capacities of the unified model. Decoders stop consuming source
// samples once a series is full.
const (
	HourlyCapacity     = 48
	DailyCapacity      = 8
	AirQualityCapacity = 24
)

// DefaultVisibility is used for daily aggregates when a 3-hour sample carries
// no visibility.
const DefaultVisibility = 10000

// Condition is the weather condition block shared by every snapshot.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Snapshot is a single point-in-time observation or forecast sample.
// UVI and DewPoint are zero when the source API does not provide them.
type Snapshot struct {
	Dt         int64     `json:"dt"`
	Temp       float64   `json:"temp"`
	FeelsLike  float64   `json:"feelsLike"`
	Pressure   int       `json:"pressure"`
	Humidity   int       `json:"humidity"`
	DewPoint   float64   `json:"dewPoint"`
	Clouds     int       `json:"clouds"`
	UVI        float64   `json:"uvi"`
	Visibility int       `json:"visibility"`
	WindSpeed  float64   `json:"windSpeed"`
	WindDeg    int       `json:"windDeg"`
	WindGust   float64   `json:"windGust"`
	Pop        float64   `json:"pop"`
	Rain1h     float64   `json:"rain1h"`
	Snow1h     float64   `json:"snow1h"`
	Weather    Condition `json:"weather"`
}

// Current is the "now" slot of the model.
type Current struct {
	Snapshot
	Sunrise int64 `json:"sunrise"`
	Sunset  int64 `json:"sunset"`
}

// DayParts holds the morning/day/evening/night breakdown of a daily value.
type DayParts struct {
	Morn  float64 `json:"morn"`
	Day   float64 `json:"day"`
	Eve   float64 `json:"eve"`
	Night float64 `json:"night"`
}

// DayTemps is DayParts plus the min/max across every sample of the day.
type DayTemps struct {
	DayParts
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DailyAggregate summarises one local calendar day. Moon fields are always
// zero: the forecast endpoint has no lunar data.
type DailyAggregate struct {
	Dt         int64     `json:"dt"`
	Sunrise    int64     `json:"sunrise"`
	Sunset     int64     `json:"sunset"`
	Moonrise   int64     `json:"moonrise"`
	Moonset    int64     `json:"moonset"`
	MoonPhase  float64   `json:"moonPhase"`
	Temp       DayTemps  `json:"temp"`
	FeelsLike  DayParts  `json:"feelsLike"`
	Pressure   int       `json:"pressure"`
	Humidity   int       `json:"humidity"`
	DewPoint   float64   `json:"dewPoint"`
	Clouds     int       `json:"clouds"`
	UVI        float64   `json:"uvi"`
	Visibility int       `json:"visibility"`
	WindSpeed  float64   `json:"windSpeed"`
	WindDeg    int       `json:"windDeg"`
	WindGust   float64   `json:"windGust"`
	Pop        float64   `json:"pop"`
	Rain       float64   `json:"rain"` // raw 3h accumulation of the day's first sample
	Snow       float64   `json:"snow"` // raw 3h accumulation of the day's first sample
	Weather    Condition `json:"weather"`
}

// Model is the unified weather model filled during one wake cycle.
// The fixed arrays never grow; HourlyLen and DailyLen count the populated
// prefix of each series.
type Model struct {
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	City           string  `json:"city"`
	TimezoneOffset int     `json:"timezoneOffset"`

	Current Current `json:"current"`

	Hourly    [HourlyCapacity]Snapshot `json:"-"`
	HourlyLen int                      `json:"-"`

	Daily    [DailyCapacity]DailyAggregate `json:"-"`
	DailyLen int                           `json:"-"`
}

// HourlySeries returns the populated hourly prefix.
func (m *Model) HourlySeries() []Snapshot {
	return m.Hourly[:m.HourlyLen]
}

// DailySeries returns the populated daily prefix.
func (m *Model) DailySeries() []DailyAggregate {
	return m.Daily[:m.DailyLen]
}

// ClearForecast zeroes the hourly and daily series.
func (m *Model) ClearForecast() {
	m.Hourly = [HourlyCapacity]Snapshot{}
	m.HourlyLen = 0
	m.Daily = [DailyCapacity]DailyAggregate{}
	m.DailyLen = 0
}

// AirQualitySample is one hourly air pollution record. Concentrations are
// in μg/m³.
type AirQualitySample struct {
	Dt   int64   `json:"dt"`
	AQI  int     `json:"aqi"`
	CO   float64 `json:"co"`
	NO   float64 `json:"no"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	NH3  float64 `json:"nh3"`
}

// AirQuality holds the air pollution history window, oldest first.
type AirQuality struct {
	Lat     float64                              `json:"lat"`
	Lon     float64                              `json:"lon"`
	Samples [AirQualityCapacity]AirQualitySample `json:"-"`
	Len     int                                  `json:"-"`
}

// Series returns the populated samples.
func (a *AirQuality) Series() []AirQualitySample {
	return a.Samples[:a.Len]
}

// Latest returns the newest sample, if any.
func (a *AirQuality) Latest() (AirQualitySample, bool) {
	if a.Len == 0 {
		return AirQualitySample{}, false
	}
	return a.Samples[a.Len-1], true
}
