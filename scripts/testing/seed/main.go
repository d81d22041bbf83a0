// Command seed fills a metastore with a synthetic catalog for manual
// testing: databases, partitioned tables, and a few days of partitions
// per table. It is destructive only in the sense of adding objects; it
// never drops anything.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gear6io/metabridge/client"
	"github.com/gear6io/metabridge/client/config"
)

var tableNames = []string{"events", "clicks", "orders", "sessions", "payments", "audits"}

var schemas = [][]client.Column{
	{{Name: "id", Type: "string"}, {Name: "payload", Type: "string"}},
	{{Name: "user_id", Type: "bigint"}, {Name: "url", Type: "string"}, {Name: "latency_ms", Type: "int"}},
	{{Name: "order_id", Type: "string"}, {Name: "amount", Type: "double"}, {Name: "currency", Type: "string"}},
}

func main() {
	var (
		host      = flag.String("host", "127.0.0.1", "metastore host")
		port      = flag.Int("port", 9083, "metastore port")
		version   = flag.String("version", "1.2.1", "metastore protocol version")
		databases = flag.Int("databases", 2, "number of databases to create")
		tables    = flag.Int("tables", 3, "tables per database")
		days      = flag.Int("days", 3, "days of partitions per table")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "seed").Logger()

	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()

	cfg := config.MetastoreConfig{
		Host:     *host,
		Port:     *port,
		Version:  *version,
		Username: "seed",
		Timeout:  30 * time.Second,
		Settings: map[string]string{
			"metastore.failure.retries":     "3",
			"metastore.connect.retry.delay": "1",
		},
	}

	c, err := client.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("seed: connect: %v", err)
	}
	defer c.Close()

	logger.Info().Str("version", c.Version().String()).Msg("connected")

	start := time.Now()
	created := 0
	loaded := 0

	for d := 0; d < *databases; d++ {
		dbName := fmt.Sprintf("seed_db_%02d", d)
		if err := c.CreateDatabase(ctx, &client.Database{
			Name:     dbName,
			Location: "/warehouse/" + dbName + ".db",
		}); err != nil {
			log.Fatalf("seed: create database %s: %v", dbName, err)
		}

		for i := 0; i < *tables; i++ {
			name := tableNames[i%len(tableNames)]
			if i >= len(tableNames) {
				name = fmt.Sprintf("%s_%d", name, i/len(tableNames))
			}

			location := fmt.Sprintf("/warehouse/%s.db/%s", dbName, name)
			tbl := &client.Table{
				Name:     name,
				Database: dbName,
				Columns:  schemas[rng.Intn(len(schemas))],
				PartitionColumns: []client.Column{
					{Name: "ds", Type: "string"},
					{Name: "hr", Type: "string"},
				},
				Location:   &location,
				Properties: map[string]string{"seeded": "true"},
			}
			if err := c.CreateTable(ctx, tbl); err != nil {
				log.Fatalf("seed: create table %s.%s: %v", dbName, name, err)
			}
			created++

			for day := 0; day < *days; day++ {
				ds := time.Now().AddDate(0, 0, -day).Format("20060102")
				for _, hr := range []string{"00", "06", "12", "18"} {
					spec := client.PartitionSpec{
						{Column: "ds", Value: ds},
						{Column: "hr", Value: hr},
					}
					source := fmt.Sprintf("file:/staging/%s/%s/ds=%s/hr=%s", dbName, name, ds, hr)
					if err := c.LoadPartition(ctx, source, dbName+"."+name, spec, false, false, true, false); err != nil {
						log.Fatalf("seed: load %s.%s ds=%s hr=%s: %v", dbName, name, ds, hr, err)
					}
					loaded++
				}
			}

			logger.Info().
				Str("table", dbName+"."+name).
				Int("partitions", *days*4).
				Msg("seeded table")
		}
	}

	logger.Info().
		Int("databases", *databases).
		Int("tables", created).
		Int("partitions", loaded).
		Dur("elapsed", time.Since(start)).
		Msg("seeding complete")
}
