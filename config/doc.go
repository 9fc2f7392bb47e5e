// Package config loads service configuration with Viper.
//
// LoadConfig reads an optional config.yml, then a .env file, then the
// process environment. Environment keys are mapped onto nested config keys
// by splitting on underscores (SERVER_PORT sets server.port), and explicit
// aliases cover bare variables such as PORT.
//
//	var cfg AppConfig
//	err := config.LoadConfig("embedding-service", &cfg,
//	    config.WithEnvAlias("PORT", "server.port"))
package config
