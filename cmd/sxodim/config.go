package main

import (
	"github.com/lomoval/sxodim/internal/config"
	"github.com/lomoval/sxodim/internal/logger"
	"github.com/lomoval/sxodim/internal/rabbit"
	internalgrpc "github.com/lomoval/sxodim/internal/server/grpc"
	internalhttp "github.com/lomoval/sxodim/internal/server/http"
	"github.com/lomoval/sxodim/internal/storagebuilder"
)

type NotifierConfig struct {
	Enabled bool
	Rabbit  rabbit.Config
}

type Config struct {
	HTTPServer internalhttp.Config
	GrpcServer internalgrpc.Config
	Logger     logger.Config
	Storage    storagebuilder.Config
	Notifier   NotifierConfig
}

var defaults = map[string]interface{}{
	"httpServer.host":          "127.0.0.1",
	"httpServer.port":          "8000",
	"httpServer.readTimeout":   "10s",
	"httpServer.writeTimeout":  "10s",
	"grpcServer.host":          "127.0.0.1",
	"grpcServer.port":          "8001",
	"grpcServer.checkInterval": "10s",
	"logger.level":             "WARN",
	"logger.format":            "text",
	"storage.storageType":      "sqlite",
	"storage.sqlite.path":      "./database.db",
	"notifier.enabled":         false,
	"notifier.rabbit.host":     "127.0.0.1",
	"notifier.rabbit.port":     "5672",
	"notifier.rabbit.user":     "user",
	"notifier.rabbit.password": "pass",
	"notifier.rabbit.queue":    "calendar.notify",
}

func NewConfig(configFile string) (Config, error) {
	c := Config{}
	err := config.Load(configFile, defaults, &c)
	return c, err
}
