package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lomoval/sxodim/internal/app"
	"github.com/lomoval/sxodim/internal/logger"
	"github.com/lomoval/sxodim/internal/rabbit"
	internalgrpc "github.com/lomoval/sxodim/internal/server/grpc"
	internalhttp "github.com/lomoval/sxodim/internal/server/http"
	"github.com/lomoval/sxodim/internal/storagebuilder"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 3 * time.Second

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	if flag.Arg(0) == "version" {
		printVersion()
		return
	}

	if err := run(); err != nil {
		log.Errorf("sxodim stopped: %v", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := NewConfig(configFile)
	if err != nil {
		return err
	}
	if err := logger.PrepareLogger(config.Logger); err != nil {
		return err
	}

	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := stor.Close(ctx); err != nil {
			log.Errorf("failed to close storage: %v", err)
		}
	}()

	var opts []app.Option
	if config.Notifier.Enabled {
		r := rabbit.New(config.Notifier.Rabbit)
		if err := r.Connect(); err != nil {
			return err
		}
		defer r.Close()
		opts = append(opts, app.WithNotifier(r))
	}

	catalog := app.New(stor, opts...)
	httpServer, err := internalhttp.NewServer(config.HTTPServer, catalog)
	if err != nil {
		return err
	}
	grpcServer := internalgrpc.NewServer(config.GrpcServer, stor)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpServer.Start(ctx)
	})
	g.Go(func() error {
		return grpcServer.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := grpcServer.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	log.Info("sxodim is running...")
	return g.Wait()
}
