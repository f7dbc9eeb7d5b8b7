package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/closeloop/actionpipe/agent"
	"github.com/closeloop/actionpipe/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "actionpipe", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("workflow-url", "", "base url of the content composition workflow")
	cmd.Flags().Int("compose-timeout", 30, "composition call timeout in seconds")
	cmd.Flags().Int("store-timeout", 5, "storage transaction timeout in seconds")
	cmd.Flags().Int("executor-capacity", 512, "pipeline executor queue capacity per worker")
	cmd.Flags().Int("executor-workers", 8, "pipeline executor worker count")
	cmd.Flags().String("disabled-types", "", "comma separated action types executed as no-ops")
	cmd.Flags().String("hidden-types", "TASK,LOOKUP", "comma separated action types hidden from the offerable listing")
	cmd.Flags().String("audit-file", "", "path of the audit trail file")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.WorkflowURL = viper.GetString("workflow-url")
	c.cfg.ComposeTimeoutSeconds = viper.GetInt("compose-timeout")
	c.cfg.StoreTimeoutSeconds = viper.GetInt("store-timeout")
	c.cfg.ExecutorCapacity = viper.GetInt("executor-capacity")
	c.cfg.ExecutorWorkers = viper.GetInt("executor-workers")
	c.cfg.DisabledTypes = splitTypes(viper.GetString("disabled-types"))
	c.cfg.HiddenTypes = splitTypes(viper.GetString("hidden-types"))
	c.cfg.AuditFile = viper.GetString("audit-file")
	return nil
}

func splitTypes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	var err error
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "actionpipe",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
