package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/rendezvous/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.WorkStartHour, convey.ShouldEqual, 9)
			convey.So(cfg.WorkEndHour, convey.ShouldEqual, 21)
			convey.So(cfg.MinDurationMinutes, convey.ShouldEqual, 60)
			convey.So(cfg.RangeDays, convey.ShouldEqual, 7)
			convey.So(cfg.FanoutLimit, convey.ShouldEqual, 8)
			convey.So(cfg.ReadTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting", t, func() {
		cases := map[string]func(*config.Config){
			"inverted hours":    func(c *config.Config) { c.WorkStartHour, c.WorkEndHour = 18, 9 },
			"hour past day end": func(c *config.Config) { c.WorkEndHour = 25 },
			"zero duration":     func(c *config.Config) { c.MinDurationMinutes = 0 },
			"negative range":    func(c *config.Config) { c.RangeDays = -1 },
			"zero fanout":       func(c *config.Config) { c.FanoutLimit = 0 },
			"zero queue":        func(c *config.Config) { c.WriteQueueSize = 0 },
			"unknown driver":    func(c *config.Config) { c.StoreDriver = "postgres" },
			"sqlite no path":    func(c *config.Config) { c.StoreDriver, c.SQLitePath = config.StoreSQLite, " " },
		}

		for name, mutate := range cases {
			convey.Convey("Then "+name+" is rejected", func() {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then a full day window is accepted", func() {
			cfg := config.New()
			cfg.WorkStartHour, cfg.WorkEndHour = 0, 24
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
