// Package config loads impactmatch configuration with viper.
//
// Values come from, in increasing precedence: defaults registered by
// SetDefaults, an impactmatch.yaml file (or the path given with --config),
// and IMPACTMATCH_-prefixed environment variables where dots become
// underscores:
//
//	IMPACTMATCH_STORAGE_DRIVER=postgres
//	IMPACTMATCH_STORAGE_DSN=postgres://localhost/impactmatch
//	IMPACTMATCH_EMBEDDING_PROVIDER=ollama
//	IMPACTMATCH_QUEUE_BACKEND=redis
//	IMPACTMATCH_QUEUE_REDIS_URL=redis://localhost:6379/0
package config
