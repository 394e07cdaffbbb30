package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/epd-weather/internal/weather"
)

type upLink struct{}

func (upLink) Status() weather.LinkStatus { return weather.LinkConnected }

func forecastBody(start time.Time, n int) string {
	list := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			list += ","
		}
		dt := start.Add(time.Duration(i) * 3 * time.Hour).Unix()
		list += fmt.Sprintf(`{"dt":%d,"main":{"temp":%d,"feels_like":270,"pressure":1012,"humidity":70},"weather":[{"id":801,"main":"Clouds","description":"few clouds","icon":"02d"}],"clouds":{"all":20},"wind":{"speed":2.5,"deg":90},"pop":0.1}`, dt, 270+i%5)
	}
	return `{"cod":"200","list":[` + list + `],"city":{"name":"Shanghai","coord":{"lat":31.2304,"lon":121.4737},"timezone":28800,"sunrise":1705273560,"sunset":1705310760}}`
}

const currentBody = `{"dt":1705298400,"main":{"temp":281.2,"feels_like":279.9,"pressure":1021,"humidity":66},"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}],"wind":{"speed":3.6,"deg":350},"clouds":{"all":0},"visibility":10000,"sys":{"sunrise":1705273560,"sunset":1705310760}}`

const airBody = `{"coord":{"lon":121.4737,"lat":31.2304},"list":[{"main":{"aqi":2},"components":{"co":300.4,"no":0,"no2":18.2,"o3":50.1,"so2":5.5,"pm2_5":14.1,"pm10":20.3,"nh3":1.2},"dt":1705294800}]}`

func TestServiceOverHTTP(t *testing.T) {
	zone := time.FixedZone("CST", 8*3600)
	now := time.Date(2024, 1, 15, 14, 0, 0, 0, zone)

	var (
		mu    sync.Mutex
		paths []string
		query = map[string]url.Values{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		query[r.URL.Path] = r.URL.Query()
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case currentPath:
			io.WriteString(w, currentBody)
		case forecastPath:
			io.WriteString(w, forecastBody(time.Date(2024, 1, 15, 12, 0, 0, 0, zone), 40))
		case airQualityPath:
			io.WriteString(w, airBody)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	host := srv.Listener.Addr().String()
	endpoints, err := NewOpenWeatherEndpoints(OpenWeatherConfig{
		Host: host, Scheme: ModeHTTP.Scheme(), APIKey: "secret", Lat: 31.2304, Lon: 121.4737,
	})
	if err != nil {
		t.Fatal(err)
	}
	transport := newTransport(t, HTTPClientConfig{Mode: ModeHTTP, Timeout: 5 * time.Second})

	svc := weather.NewService(transport, upLink{}, endpoints,
		weather.WithLocation(zone),
		weather.WithClock(func() time.Time { return now }),
	)
	res, err := svc.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Outcome != weather.OutcomeComplete {
		t.Errorf("expected complete outcome, got %v", res.Outcome)
	}
	if res.Model.Current.Temp != 281.2 || res.Model.City != "Shanghai" {
		t.Errorf("unexpected model: temp %v city %q", res.Model.Current.Temp, res.Model.City)
	}
	if res.Model.HourlyLen != 40 || res.Model.DailyLen != 6 {
		t.Errorf("expected 40 hourly / 6 daily, got %d / %d", res.Model.HourlyLen, res.Model.DailyLen)
	}
	if res.AirQuality.Len != 1 || res.AirQuality.Samples[0].AQI != 2 {
		t.Errorf("unexpected air quality %+v", res.AirQuality.Series())
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{currentPath, forecastPath, airQualityPath}
	if fmt.Sprint(paths) != fmt.Sprint(want) {
		t.Errorf("request order = %v, want %v", paths, want)
	}
	air := query[airQualityPath]
	end := now.Unix()
	if air.Get("end") != fmt.Sprint(end) || air.Get("start") != fmt.Sprint(end-(3600*weather.AirQualityCapacity-1)) {
		t.Errorf("unexpected air window %v", air)
	}
}

func TestServiceOverHTTP_RetryBudgetSurvivesFailingEndpoint(t *testing.T) {
	zone := time.FixedZone("CST", 8*3600)
	now := time.Date(2024, 1, 15, 14, 0, 0, 0, zone)

	var (
		mu    sync.Mutex
		calls = map[string]int{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		n := calls[r.URL.Path]
		calls[r.URL.Path]++
		mu.Unlock()

		switch r.URL.Path {
		case currentPath:
			w.WriteHeader(http.StatusInternalServerError)
		case forecastPath:
			// Two server errors, then success, in every cycle.
			if n%weather.MaxAttempts < weather.MaxAttempts-1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			io.WriteString(w, forecastBody(time.Date(2024, 1, 15, 12, 0, 0, 0, zone), 40))
		case airQualityPath:
			io.WriteString(w, airBody)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	endpoints, err := NewOpenWeatherEndpoints(OpenWeatherConfig{
		Host: srv.Listener.Addr().String(), Scheme: ModeHTTP.Scheme(), APIKey: "secret", Lat: 31.2304, Lon: 121.4737,
	})
	if err != nil {
		t.Fatal(err)
	}
	transport := newTransport(t, HTTPClientConfig{Mode: ModeHTTP, Timeout: 5 * time.Second})
	svc := weather.NewService(transport, upLink{}, endpoints,
		weather.WithLocation(zone),
		weather.WithClock(func() time.Time { return now }),
	)

	// Two cycles on one transport, as in daemon mode.
	for cycle := 1; cycle <= 2; cycle++ {
		res, err := svc.Acquire(context.Background())
		if err != nil {
			t.Fatalf("cycle %d: unexpected error: %v", cycle, err)
		}
		if res.Outcome != weather.OutcomePartial {
			t.Errorf("cycle %d: expected partial outcome, got %v", cycle, res.Outcome)
		}
		if res.CurrentStatus != http.StatusInternalServerError {
			t.Errorf("cycle %d: current status = %s, want 500", cycle, res.CurrentStatus)
		}
		if res.ForecastStatus != weather.StatusOK {
			t.Errorf("cycle %d: forecast status = %s, want 200", cycle, res.ForecastStatus)
		}
		if res.Model.HourlyLen != 40 {
			t.Errorf("cycle %d: expected 40 hourly samples, got %d", cycle, res.Model.HourlyLen)
		}

		mu.Lock()
		cur, fc := calls[currentPath], calls[forecastPath]
		mu.Unlock()
		if want := cycle * weather.MaxAttempts; cur != want || fc != want {
			t.Errorf("cycle %d: server saw %d current / %d forecast requests, want %d each", cycle, cur, fc, want)
		}
	}
}
