package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryotel "github.com/getsentry/sentry-go/otel"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/batchswap/sor/domain"
	sorlog "github.com/batchswap/sor/log"
)

func main() {
	configPath := flag.String("config", "config.json", "config file location")
	hostName := flag.String("host", "sor", "the name of the host")
	isDebug := flag.Bool("debug", false, "debug mode")

	flag.Parse()

	config := DefaultConfig
	if *configPath != "" {
		viper.SetConfigFile(*configPath)
		if err := viper.ReadInConfig(); err != nil {
			panic(err)
		}
		if err := viper.Unmarshal(&config); err != nil {
			panic(fmt.Errorf("error unmarshalling config: %w", err))
		}
	}

	// Handle SIGINT and SIGTERM signals to initiate shutdown
	exitChan := make(chan os.Signal, 1)
	signal.Notify(exitChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		if err := recover(); err != nil {
			log.Println(err)
			exitChan <- syscall.SIGTERM
		}
	}()

	if config.OTEL != nil && config.OTEL.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			ServerName:    *hostName,
			Dsn:           config.OTEL.DSN,
			SampleRate:    config.OTEL.SampleRate,
			EnableTracing: true,
			Debug:         *isDebug,
			Environment:   config.OTEL.Environment,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		defer sentry.Flush(2 * time.Second)

		initOTELTracer(*hostName)
	}

	logger, err := sorlog.NewLogger(config.LoggerIsProduction, config.LoggerFilename, config.LoggerLevel)
	if err != nil {
		panic(fmt.Errorf("error while creating logger: %w", err))
	}
	logger.Info("Starting smart order router")

	server, err := NewSmartOrderRouterServer(config, logger)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-exitChan
		cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatal(err)
		}

		os.Exit(0)
	}()

	if err := server.Start(ctx); err != nil {
		panic(err)
	}
}

// initOTELTracer initializes the OTEL tracer
// and wires it up with the Sentry exporter.
func initOTELTracer(hostName string) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalf("stdouttrace.New: %v", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(hostName),
		),
	)
	if err != nil {
		log.Fatalf("resource.New: %v", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sentryotel.NewSentrySpanProcessor()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(sentryotel.NewSentryPropagator())
}

// DefaultConfig defines the default config for the smart order router server.
var DefaultConfig = domain.Config{
	ServerAddress: ":9092",

	LoggerFilename:     "sor.log",
	LoggerIsProduction: true,
	LoggerLevel:        "info",

	PoolDataEndpoint:   "http://localhost:8080/pools",
	TokenPriceEndpoint: "http://localhost:8080/prices",

	Router: &routerDefaultConfig,

	CORS: &domain.CORSConfig{
		AllowedHeaders: "Origin, Accept, Content-Type, X-Requested-With, X-Server-Time",
		AllowedMethods: "GET, OPTIONS",
		AllowedOrigin:  "*",
	},
}

var routerDefaultConfig = domain.DefaultRouterConfig()
