package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Go-routine-4595/pdm-sim-g/adapters/controller"
	"github.com/Go-routine-4595/pdm-sim-g/adapters/gateway/display"
	"github.com/Go-routine-4595/pdm-sim-g/adapters/gateway/eventhub"
	"github.com/Go-routine-4595/pdm-sim-g/adapters/gateway/mqtt"
	"github.com/Go-routine-4595/pdm-sim-g/adapters/gateway/rabbitmq"
	"github.com/Go-routine-4595/pdm-sim-g/buffer"
	"github.com/Go-routine-4595/pdm-sim-g/consumer"
	"github.com/Go-routine-4595/pdm-sim-g/logging"
	"github.com/Go-routine-4595/pdm-sim-g/model"
	"github.com/Go-routine-4595/pdm-sim-g/service"
	"github.com/Go-routine-4595/pdm-sim-g/storage"
)

type Config struct {
	Bus               string                      `yaml:"Bus"`
	ControllerConfig  controller.ControllerConfig `yaml:"ControllerConfig"`
	RabbitConfig      rabbitmq.RabbitMQConfig     `yaml:"RabbitConfig"`
	MqttConfig        mqtt.MqttConf               `yaml:"MqttConfig"`
	EventHubConfig    eventhub.EventHubConfig     `yaml:"EventHubConfig"`
	EventHubSubConfig eventhub.SubscriberConfig   `yaml:"EventHubSubscriberConfig"`
	ConsumerConfig    consumer.Config             `yaml:"ConsumerConfig"`
	StorageConfig     storage.Config              `yaml:"StorageConfig"`
	LoggingConfig     logging.Config              `yaml:"LoggingConfig"`
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "pdm-sim-g",
		Short: "Predictive-maintenance telemetry pipeline: sensor simulators and the buffering consumer",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")

	root.AddCommand(&cobra.Command{
		Use:   "simulate",
		Short: "Run the equipment sensor simulators and publish readings to the bus",
		Run: func(cmd *cobra.Command, args []string) {
			runSimulate(openConfigFile(configPath))
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "consume",
		Short: "Poll the bus, buffer readings per equipment and flush them to persistence",
		Run: func(cmd *cobra.Command, args []string) {
			runConsume(openConfigFile(configPath))
		},
	})

	if err := root.Execute(); err != nil {
		processError(err)
	}
}

func runSimulate(conf Config) {
	logger := logging.New(conf.LoggingConfig)

	// The bus handle lives on its own context and WaitGroup so it is
	// released only after every device loop has joined.
	busCtx, busCancel := context.WithCancel(context.Background())
	defer busCancel()
	busWg := &sync.WaitGroup{}

	gateway, err := newGateway(busCtx, busWg, conf, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("bus", conf.Bus).Msg("failed to set up gateway")
	}

	svc, err := service.NewService(gateway, controller.EquipmentIDs(conf.ControllerConfig.EquipmentCount))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up simulators")
	}

	devCtx, devCancel := context.WithCancel(context.Background())
	defer devCancel()
	devWg := &sync.WaitGroup{}

	ctrl := controller.NewController(conf.ControllerConfig, svc, logger)
	ctrl.Start(devCtx, devWg)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info().Msg("termination signal received")
		devCancel()
	}()

	joinThenRelease(devWg, busCancel, busWg)
}

// joinThenRelease waits for the producer units to stop, then releases
// the bus handle and waits for its shutdown to complete. The bus is
// never closed while a device loop could still be publishing.
func joinThenRelease(devWg *sync.WaitGroup, busCancel context.CancelFunc, busWg *sync.WaitGroup) {
	devWg.Wait()
	busCancel()
	busWg.Wait()
}

func runConsume(conf Config) {
	logger := logging.New(conf.LoggingConfig)

	store, err := storage.NewManager(conf.StorageConfig, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up persistence")
	}
	defer store.Close()

	sub, err := newSubscriber(conf, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("bus", conf.Bus).Msg("failed to set up subscriber")
	}

	buffers := buffer.NewManager(conf.ConsumerConfig.BufferCapacity, store, logger)
	drv := consumer.NewDriver(conf.ConsumerConfig, sub, buffers, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info().Msg("termination signal received")
		cancel()
	}()

	// Blocks until the driver has flushed all buffers and released the
	// subscriber.
	drv.Run(ctx)
}

func newGateway(ctx context.Context, wg *sync.WaitGroup, conf Config, logger zerolog.Logger) (model.IGateway, error) {
	switch conf.Bus {
	case "rabbitmq":
		rabbit := rabbitmq.NewRabbitMQ(conf.RabbitConfig, logger)
		rabbit.Start(ctx, wg)
		return rabbit, nil
	case "mqtt":
		return mqtt.NewMqtt(conf.MqttConfig, logger, ctx, wg)
	case "eventhub":
		return eventhub.NewEventHub(ctx, wg, conf.EventHubConfig, logger)
	case "display", "":
		return display.NewDisplay(), nil
	default:
		return nil, fmt.Errorf("unknown bus %q", conf.Bus)
	}
}

func newSubscriber(conf Config, logger zerolog.Logger) (model.ISubscriber, error) {
	switch conf.Bus {
	case "rabbitmq":
		return rabbitmq.NewSubscriber(conf.RabbitConfig, logger)
	case "mqtt":
		return mqtt.NewSubscriber(conf.MqttConfig, logger)
	case "eventhub":
		return eventhub.NewSubscriber(conf.EventHubSubConfig, logger)
	default:
		return nil, fmt.Errorf("bus %q cannot be consumed from", conf.Bus)
	}
}

func openConfigFile(s string) Config {
	if s == "" {
		s = "config.yaml"
	}

	f, err := os.Open(s)
	if err != nil {
		processError(errors.Join(err, errors.New("open config file")))
	}
	defer f.Close()

	var config Config
	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&config)
	if err != nil {
		processError(err)
	}
	return config
}

func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}
