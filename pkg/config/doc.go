// Package config loads the satlink service configuration from YAML.
//
// Default returns a complete configuration; a file only needs to name the
// values it changes. Durations are written as Go duration strings ("30s",
// "5m").
//
//	arbiter:
//	  enable_timeout: 30s
//	  radio_off_timeout: 30s   # 0s waits for the radios without a bound
//	delivery:
//	  retry_interval: 5m
//	  max_attempts: 0          # 0 retries until acknowledged
//	  max_id: 65536
//	  auto_poll: true
//	coexistence:
//	  required_radios: [bluetooth, nfc, uwb, wifi]
//	store:
//	  backend: sqlite          # sqlite, json or memory
//	  path: /var/lib/satlink/satlink.db
//	  driver: sqlite           # sqlite (pure Go) or sqlite3 (cgo)
//	log:
//	  level: info
//	  event_file: /var/log/satlink/events.cbor
//	  file: /var/log/satlink/satctl.log   # rotated at max_size_mb
//	  max_size_mb: 10
//	  max_backups: 3
//	  max_age_days: 28
package config
