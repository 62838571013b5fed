// Package config loads and validates the Safehouse backend configuration.
//
// Configuration is read once at startup from a YAML file, then selected keys
// are overridden from SAFEHOUSE_* environment variables. Secrets (MQTT
// password, InfluxDB token, JWT secret) should come from the environment.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
package config
