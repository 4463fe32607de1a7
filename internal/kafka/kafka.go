// Package kafka holds the Kafka settings shared by the data processor's producers.
package kafka

import (
	"fmt"
	"strings"
	"time"
)

// WriteTimeout bounds a single synchronous produce call.
const WriteTimeout = 10 * time.Second

// ParseBrokers parses a comma-separated broker list, trimming whitespace and
// dropping empty entries.
func ParseBrokers(brokers string) []string {
	if brokers == "" {
		return nil
	}
	var list []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			list = append(list, b)
		}
	}
	return list
}

// ValidateProducerParams validates common producer parameters.
func ValidateProducerParams(brokers, topic string) error {
	if len(ParseBrokers(brokers)) == 0 {
		return fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	return nil
}
