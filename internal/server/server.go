package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/victornm/showdown/internal/api"
	"github.com/victornm/showdown/internal/event"
	"github.com/victornm/showdown/internal/leaderboard"
	"github.com/victornm/showdown/internal/session"
	"github.com/victornm/showdown/internal/telemetry"
	"github.com/victornm/showdown/internal/ws"
	"github.com/victornm/showdown/web"
)

type Server struct {
	c Config

	eb  *event.Bus
	reg *prometheus.Registry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	infra struct {
		redis redis.UniversalClient
	}

	service struct {
		session     *session.Service
		leaderboard *leaderboard.Service
	}

	hub   *ws.Hub
	feed  *api.Feed
	relay *api.Relay

	http *http.Server
	grpc *grpc.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.eb = event.NewBus()
	s.reg = prometheus.NewRegistry()
	s.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if len(s.c.Redis.Addrs) == 0 {
		slog.Info("server: redis not configured, leaderboard and relay disabled")
		return nil
	}

	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Addrs,
		Password: s.c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initService() error {
	s.hub = ws.NewHub()
	s.feed = api.NewFeed()

	dispatchers := []session.Dispatcher{s.hub, s.feed}

	if s.infra.redis != nil {
		s.relay = api.NewRelay(s.infra.redis, s.c.Redis.Prefix)
		dispatchers = append(dispatchers, s.relay)

		s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
			EventBus: s.eb,
			Redis:    s.infra.redis,
			Prefix:   s.c.Redis.Prefix,
		})

		// scores never outlive the process
		if err := s.service.leaderboard.Reset(s.ctx); err != nil {
			return fmt.Errorf("leaderboard: %w", err)
		}
	}

	s.service.session = session.NewService(session.Config{
		EventBus:   s.eb,
		Dispatcher: session.Fanout(dispatchers...),
		Clock:      clockwork.NewRealClock(),
		Rules:      s.c.Rules(),
	})

	players := func() int { return s.service.session.State().PlayerCount }
	telemetry.NewMetrics(s.reg, s.hub.Count, players).Subscribe(s.eb)
	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.InstrumentMetricHandler(s.reg, promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	e.GET("/healthz", s.handleHealthz)
	e.GET("/ws", gin.WrapH(ws.NewHandler(s.hub, s.service.session, s.c.HTTP.AllowedOrigins)))
	s.registerStatic(e)

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptors()...)

	a := api.Config{
		GRPC:         s.grpc,
		Router:       e,
		EventBus:     s.eb,
		Session:      s.service.session,
		Leaderboard:  s.service.leaderboard,
		Feed:         s.feed,
		PubsubPrefix: s.c.Redis.Prefix,
	}
	if s.infra.redis != nil {
		a.Redis = s.infra.redis
	}
	api.New(a)

	c := cors.New(cors.Options{
		AllowedOrigins: s.c.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedHeaders: []string{"*"},
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           c.Handler(e),
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) registerStatic(e *gin.Engine) {
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		panic(err)
	}

	index, err := fs.ReadFile(static, "index.html")
	if err != nil {
		panic(err)
	}

	e.StaticFS("/static", http.FS(static))
	e.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})
}

func (s *Server) handleHealthz(c *gin.Context) {
	if s.infra.redis != nil {
		if err := s.infra.redis.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() error {
	ctx := s.ctx

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		return fmt.Errorf("grpc server: listen: %w", err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if s.relay != nil {
		s.wg.Add(1)
		eg.Go(func() error {
			defer s.wg.Done()
			return s.relay.Run(ctx)
		})
	}

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}

	return err
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	// players leave the session before the relay and the event bus stop
	s.hub.Close()

	s.feed.Close()
	s.grpc.GracefulStop()
	s.service.session.Close()

	s.cancel()
	s.wg.Wait()
	s.eb.Stop()

	if s.infra.redis != nil {
		if err := s.infra.redis.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
