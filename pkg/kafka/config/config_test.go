package kafka_config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.BookingEventsTopic != DefaultBookingEventsTopic {
		t.Errorf("topic = %q, want %q", cfg.BookingEventsTopic, DefaultBookingEventsTopic)
	}
	if cfg.NotifierGroupID != DefaultNotifierGroupID {
		t.Errorf("group = %q, want %q", cfg.NotifierGroupID, DefaultNotifierGroupID)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "kafka-1:9092, kafka-2:9092")
	t.Setenv(EnvKafkaConsumerMaxRetries, "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", cfg.Brokers)
	}
	if cfg.ConsumerMaxRetries != 5 {
		t.Errorf("max retries = %d", cfg.ConsumerMaxRetries)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"dlq equals topic", func(c *Config) { c.BookingEventsDLQTopic = c.BookingEventsTopic }, "must differ"},
		{"unknown compression", func(c *Config) { c.ProducerCompression = "brotli" }, "ProducerCompression"},
		{"bad acks", func(c *Config) { c.ProducerRequireAcks = 2 }, "ProducerRequireAcks"},
		{"empty broker", func(c *Config) { c.Brokers = []string{"kafka:9092", ""} }, "Brokers"},
		{"zero wait", func(c *Config) { c.ConsumerMaxWait = 0 }, "ConsumerMaxWait"},
		{"missing group", func(c *Config) { c.NotifierGroupID = "" }, "NotifierGroupID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
