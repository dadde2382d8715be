package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	app "github.com/okian/taskforce/internal/app"
	"github.com/okian/taskforce/internal/config"
	"github.com/okian/taskforce/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainWiring(t *testing.T) {
	convey.Convey("Given an in-memory configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.WorkerCount = 2
		cfg.QueueSize = 4

		store, err := openStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer store.Close(ctx)

		svc := newService(cfg, store, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		r := newRouter(ctx, svc)

		convey.Convey("When creating an event over HTTP", func() {
			req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"name":"Jam"}`))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			convey.Convey("Then the service stores it", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"name":"Jam"`)
			})
		})

		convey.Convey("When asking for the docs and stats", func() {
			docs := httptest.NewRecorder()
			r.ServeHTTP(docs, httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody))
			stats := httptest.NewRecorder()
			r.ServeHTTP(stats, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))

			convey.Convey("Then both are served", func() {
				convey.So(docs.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(stats.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(stats.Body.String(), convey.ShouldContainSubstring, `"breakerState":"closed"`)
			})
		})

		convey.Convey("When refreshing service metrics", func() {
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})

	convey.Convey("Given a mongo configuration that cannot connect", t, func() {
		cfg := config.New()
		cfg.Store = config.StoreMongo
		cfg.MongoURI = "not-a-uri"

		convey.Convey("Then opening the store fails", func() {
			_, err := openStore(context.Background(), cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		convey.Convey("Then system metrics update without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then both loops return when their context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			svc := app.New()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("metrics updaters did not stop")
			}
		})
	})
}
