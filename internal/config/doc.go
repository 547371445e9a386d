// Package config loads server, storage, dispatcher and inference settings
// from defaults, an optional config.yaml and YERBA_ environment variables.
package config
