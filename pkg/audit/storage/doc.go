// Package storage provides audit storage backends.
//
// MemoryStorage keeps records in a map and is meant for tests and short-lived
// CLI runs. SQLiteStorage persists records in a single SQLite file and can use
// either the cgo driver (github.com/mattn/go-sqlite3, registered as "sqlite3")
// or the pure Go driver (modernc.org/sqlite, registered as "sqlite").
// RedisStorage shares records between several service instances through a
// Redis server (github.com/redis/go-redis/v9).
package storage
