package main

import (
	"context"
	"flag"
	"log/syslog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/joho/godotenv"
	"github.com/robolink/robolink"
	"github.com/robolink/robolink/firmware"
	"github.com/robolink/robolink/inmem"
	"github.com/robolink/robolink/payment"
	"github.com/robolink/robolink/persistent"
	"github.com/robolink/robolink/pgdb"
	"github.com/robolink/robolink/transport/rest"
	"github.com/robolink/robolink/walletd"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/tidwall/buntdb"
)

const firmwareTimeout = 5 * time.Second

type backend struct {
	sessions robolink.SessionStore
	robots   robolink.RobotStore
	events   robolink.EventStore
	close    func()
}

// openBackend picks the store implementations from the environment.
// Sessions and events live in buntdb when SESSION_BACKEND=buntdb, in
// process memory otherwise. Robots live in postgres when POSTGRES_DSN
// is set.
func openBackend(ctx context.Context) backend {
	closers := make([]func(), 0, 2)
	b := backend{}

	switch os.Getenv("SESSION_BACKEND") {
	case "", "memory":
		b.sessions = inmem.NewSessionStore(nil)
		events := inmem.NewEventStore()
		b.events = &events
	case "buntdb":
		path := os.Getenv("BUNTDB_PATH")
		if path == "" {
			path = "kv.db"
		}
		bdb, err := buntdb.Open(path)
		if err != nil {
			logrus.WithError(err).Fatalln("Could not open buntdb.")
		}
		closers = append(closers, func() { bdb.Close() })
		events := &persistent.EventStore{Buntdb: bdb}
		b.events = events
		b.sessions = &persistent.SessionStore{Buntdb: bdb, Events: events}
	default:
		logrus.Fatalln("Unknown SESSION_BACKEND: " + os.Getenv("SESSION_BACKEND"))
	}

	pgDsn := os.Getenv("POSTGRES_DSN")
	if pgDsn != "" {
		logrus.Infoln("Opening database.")
		pg := pgdb.Open(ctx, pgDsn)
		if err := persistent.CreateSchema(ctx, pg); err != nil {
			logrus.WithError(err).Fatalln("Could not create schema.")
		}
		closers = append(closers, func() {
			pg.DB.Close()
			pg.Close()
		})
		b.robots = &persistent.RobotStore{DB: pg}
	} else {
		robots := inmem.NewRobotStore()
		b.robots = &robots
	}

	b.close = func() {
		for _, close := range closers {
			close()
		}
	}
	return b
}

type walletConfig struct {
	create   walletd.Creator
	balance  walletd.BalanceProvider
	transfer walletd.Transferrer
	treasury string
}

func walletConfigFromEnv() walletConfig {
	baseUrl := os.Getenv("WALLETD_URL")
	if baseUrl == "" {
		logrus.Fatalln("Environment variable WALLETD_URL is not set!")
	}
	apiKey := os.Getenv("WALLETD_API_KEY")
	if apiKey == "" {
		logrus.Fatalln("Environment variable WALLETD_API_KEY is not set!")
	}
	return walletConfig{
		create:   walletd.RestCreator(baseUrl, apiKey),
		balance:  walletd.RestBalanceProvider(baseUrl, apiKey),
		transfer: walletd.RestTransferrer(baseUrl, apiKey),
		treasury: os.Getenv("TREASURY_ADDRESS"),
	}
}

func paymentGateFromEnv(paymentsEnabled bool) robolink.PaymentGate {
	if !paymentsEnabled {
		return nil
	}
	verifierUrl := os.Getenv("PAYMENT_VERIFIER_URL")
	if verifierUrl == "" {
		logrus.Fatalln("Environment variable PAYMENT_VERIFIER_URL is not set!")
	}
	return payment.RestVerifier(verifierUrl)
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		logrus.Fatalln("Invalid " + key + ": " + raw)
	}
	return time.Duration(seconds) * time.Second
}

func listenAndServe(
	b backend,
	service *robolink.AccessService,
	wallet walletConfig,
	debug bool,
) func() error {
	accessController := rest.AccessController{Service: service}
	robotController := rest.RobotController{
		Store:        b.robots,
		Sessions:     b.sessions,
		Ping:         service.Ping,
		CreateWallet: wallet.create,
		Balance:      wallet.balance,
		Transfer:     wallet.transfer,
		Treasury:     wallet.treasury,
		Events:       b.events,
	}
	commandController := rest.CommandController{
		Motor:  firmware.RestMotor(firmwareTimeout),
		Camera: firmware.RestCamera(firmwareTimeout),
	}
	eventController := rest.EventController{Store: b.events}

	server := fiber.New()
	server.Use(rest.LogHandler())

	api := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: rest.ErrorHandler,
	})

	allowOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	api.Use(cors.New(cors.Config{AllowOrigins: allowOrigins}))

	requestAuthorizer := rest.RequestAuthorizer(service, b.robots)
	api.Get("/status", monitor.New())
	accessController.InstallTo(api)
	robotController.InstallTo(api)
	commandController.InstallTo(requestAuthorizer, api)
	eventController.InstallTo(requestAuthorizer, api)

	server.Mount("/api/", api)

	server.Static("/", "./www/", fiber.Static{
		Browse: false,
		Index:  "index.html",
	})

	server.Use(rest.NotFoundHandler)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		if debug {
			addr = "127.0.0.1:8080"
		} else {
			addr = ":8080"
		}
	}
	go server.Listen(addr)

	return server.Shutdown
}

func setupLogger(verbose bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "robolink_backend")
	if err != nil {
		logrus.WithError(err).Warningln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func awaitInterruption() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}

func main() {
	flag.Parse()
	_ = godotenv.Load()
	debug := os.Getenv("DEBUG") == "true"
	setupLogger(debug)
	logrus.Infoln("Starting backend.")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := openBackend(ctx)
	defer b.close()

	paymentsEnabled := os.Getenv("PAYMENTS_ENABLED") == "true"
	service := &robolink.AccessService{
		Sessions:        b.sessions,
		Robots:          b.robots,
		Ping:            firmware.RestPinger(firmwareTimeout),
		VerifyPayment:   paymentGateFromEnv(paymentsEnabled),
		SessionTTL:      envSeconds("SESSION_DURATION_SECONDS", 10*time.Minute),
		PaymentsEnabled: paymentsEnabled,
	}

	reaper := &robolink.Reaper{
		Store:    b.sessions,
		Interval: envSeconds("REAPER_INTERVAL_SECONDS", time.Minute),
	}
	go reaper.Run(ctx)

	logrus.Infoln("Starting listening... To shut down use ^C")
	shutdown := listenAndServe(b, service, walletConfigFromEnv(), debug)

	awaitInterruption()

	logrus.Infoln("Shutting down...")
	cancel()
	if err := shutdown(); err != nil {
		logrus.WithError(err).Warningln("Fiber shutdown failed.")
	}
	logrus.Exit(0)
}
