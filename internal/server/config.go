package server

import "github.com/victornm/showdown/internal/domain"

type Config struct {
	HTTP struct {
		Port           int32
		AllowedOrigins []string
	}

	GRPC struct {
		Port int32
	}

	Log struct {
		Level  string
		Format string
	}

	Game struct {
		MinPlayers   int
		MaxAttempts  int
		RoundSeconds int
		WinPoints    int
		RotateMaster bool
	}

	// Redis is optional. Without addresses, the leaderboard and the pub/sub relay are disabled.
	Redis struct {
		Addrs  []string
		Pass   string
		Prefix string
	}
}

func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.HTTP.AllowedOrigins = []string{"*"}
	c.GRPC.Port = 9090
	c.Log.Level = "info"
	c.Log.Format = "text"

	r := domain.DefaultRules()
	c.Game.MinPlayers = r.MinPlayers
	c.Game.MaxAttempts = r.MaxAttempts
	c.Game.RoundSeconds = r.RoundSeconds
	c.Game.WinPoints = r.WinPoints
	c.Game.RotateMaster = r.RotateMaster

	c.Redis.Prefix = "showdown"
	return c
}

func (c Config) Rules() domain.Rules {
	return domain.Rules{
		MinPlayers:   c.Game.MinPlayers,
		MaxAttempts:  c.Game.MaxAttempts,
		RoundSeconds: c.Game.RoundSeconds,
		WinPoints:    c.Game.WinPoints,
		RotateMaster: c.Game.RotateMaster,
	}
}
