package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/epd-weather/internal/cycle"
	"github.com/i474232898/epd-weather/internal/store"
	"github.com/i474232898/epd-weather/internal/weather"
)

var validate = validator.New()

// NextWakeFunc reports when the next wake cycle is due. It may be nil.
type NextWakeFunc func() time.Time

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reports *store.MemoryStore, nextWake NextWakeFunc) {
	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{"status": "ok", "reports": reports.Len()}
		if nextWake != nil {
			if t := nextWake(); !t.IsZero() {
				body["nextWake"] = t
			}
		}
		return c.JSON(body)
	})

	v1 := app.Group("/api/v1")

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		rep, err := latestWeather(reports)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"id":             rep.ID,
			"updatedAt":      rep.FinishedAt,
			"outcome":        rep.Outcome.String(),
			"city":           rep.Model.City,
			"lat":            rep.Model.Lat,
			"lon":            rep.Model.Lon,
			"timezoneOffset": rep.Model.TimezoneOffset,
			"current":        rep.Model.Current,
			"indoor":         rep.Indoor,
			"statusLine":     rep.StatusLine,
		})
	})

	v1.Get("/weather/hourly", func(c *fiber.Ctx) error {
		q, err := parseLimit(c, weather.HourlyCapacity)
		if err != nil {
			return err
		}
		rep, err := latestWeather(reports)
		if err != nil {
			return err
		}
		series := rep.Model.HourlySeries()
		return c.JSON(fiber.Map{"id": rep.ID, "hourly": series[:q.cap(len(series))]})
	})

	v1.Get("/weather/daily", func(c *fiber.Ctx) error {
		q, err := parseLimit(c, weather.DailyCapacity)
		if err != nil {
			return err
		}
		rep, err := latestWeather(reports)
		if err != nil {
			return err
		}
		series := rep.Model.DailySeries()
		return c.JSON(fiber.Map{"id": rep.ID, "daily": series[:q.cap(len(series))]})
	})

	v1.Get("/weather/air", func(c *fiber.Ctx) error {
		rep, err := latestWeather(reports)
		if err != nil {
			return err
		}
		body := fiber.Map{
			"id":      rep.ID,
			"lat":     rep.AirQuality.Lat,
			"lon":     rep.AirQuality.Lon,
			"samples": rep.AirQuality.Series(),
		}
		if latest, ok := rep.AirQuality.Latest(); ok {
			body["latest"] = latest
		}
		return c.JSON(body)
	})

	v1.Get("/cycles", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		found, err := reports.GetRange(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no wake cycles in requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch wake cycles")
		}

		out := make([]cycleSummary, 0, len(found))
		for _, r := range found {
			out = append(out, summarize(r))
		}
		return c.JSON(fiber.Map{
			"from":   req.From,
			"to":     req.To,
			"cycles": out,
		})
	})

	v1.Get("/cycles/latest", func(c *fiber.Ctx) error {
		rep, err := reports.GetLatest()
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "no wake cycle recorded yet")
		}
		return c.JSON(summarize(rep))
	})

	v1.Get("/cycles/:id", func(c *fiber.Ctx) error {
		q := idParam{ID: c.Params("id")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id must be a uuid")
		}
		rep, err := reports.Get(q.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "unknown wake cycle")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch wake cycle")
		}
		return c.JSON(summarize(rep))
	})

	v1.Get("/status/:code", func(c *fiber.Ctx) error {
		code, err := strconv.Atoi(c.Params("code"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "code must be an integer")
		}
		q := statusParam{Code: code}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(describeStatus(weather.Status(q.Code)))
	})
}

func latestWeather(reports *store.MemoryStore) (cycle.Report, error) {
	rep, err := reports.GetLatestWeather()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return rep, fiber.NewError(fiber.StatusNotFound, "no weather data yet")
		}
		return rep, fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}
	return rep, nil
}

// limitQuery holds the optional series length.
type limitQuery struct {
	Limit int `validate:"min=0"`
	Max   int
}

func (q limitQuery) cap(n int) int {
	if q.Limit > 0 && q.Limit < n {
		return q.Limit
	}
	return n
}

func parseLimit(c *fiber.Ctx, maxLen int) (limitQuery, error) {
	q := limitQuery{Max: maxLen}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, "limit must be an integer")
		}
		q.Limit = n
	}
	if err := validate.Struct(q); err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if q.Limit > q.Max {
		return q, fiber.NewError(fiber.StatusBadRequest, "limit must be at most "+strconv.Itoa(q.Max))
	}
	return q, nil
}

type idParam struct {
	ID string `validate:"required,uuid"`
}

type statusParam struct {
	Code int `validate:"min=-1024,max=999"`
}

// historyQuery holds query parameters for the cycles endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

type statusView struct {
	Status     int    `json:"status"`
	Kind       string `json:"kind"`
	Phrase     string `json:"phrase"`
	Text       string `json:"text"`
	LinkStatus *int   `json:"linkStatus,omitempty"`
	DecodeCode *int   `json:"decodeCode,omitempty"`
}

func describeStatus(s weather.Status) statusView {
	v := statusView{Status: int(s), Kind: s.Kind().String(), Phrase: s.Phrase(), Text: s.String()}
	if ls, ok := s.LinkStatus(); ok {
		n := int(ls)
		v.LinkStatus = &n
	}
	if code, ok := s.DecodeCode(); ok {
		n := int(code)
		v.DecodeCode = &n
	}
	return v
}

type cycleSummary struct {
	ID                string               `json:"id"`
	StartedAt         time.Time            `json:"startedAt"`
	FinishedAt        time.Time            `json:"finishedAt"`
	Screen            cycle.Screen         `json:"screen"`
	Outcome           string               `json:"outcome"`
	CurrentStatus     statusView           `json:"currentStatus"`
	ForecastStatus    statusView           `json:"forecastStatus"`
	AirQualityStatus  statusView           `json:"airQualityStatus"`
	HourlyCount       int                  `json:"hourlyCount"`
	DailyCount        int                  `json:"dailyCount"`
	AirQualityCount   int                  `json:"airQualityCount"`
	BatteryMillivolts int                  `json:"batteryMillivolts"`
	Battery           string               `json:"battery"`
	Link              string               `json:"link"`
	StatusLine        string               `json:"statusLine,omitempty"`
	Error             *weather.ErrorScreen `json:"error,omitempty"`
	SleepSeconds      int64                `json:"sleepSeconds"`
	Hibernate         bool                 `json:"hibernate"`
}

func summarize(r cycle.Report) cycleSummary {
	return cycleSummary{
		ID:                r.ID,
		StartedAt:         r.StartedAt,
		FinishedAt:        r.FinishedAt,
		Screen:            r.Screen,
		Outcome:           r.Outcome.String(),
		CurrentStatus:     describeStatus(r.CurrentStatus),
		ForecastStatus:    describeStatus(r.ForecastStatus),
		AirQualityStatus:  describeStatus(r.AirQualityStatus),
		HourlyCount:       r.Model.HourlyLen,
		DailyCount:        r.Model.DailyLen,
		AirQualityCount:   r.AirQuality.Len,
		BatteryMillivolts: r.BatteryMillivolts,
		Battery:           r.Battery.String(),
		Link:              r.Link.String(),
		StatusLine:        r.StatusLine,
		Error:             r.Error,
		SleepSeconds:      int64(r.Sleep / time.Second),
		Hibernate:         r.Hibernate,
	}
}
