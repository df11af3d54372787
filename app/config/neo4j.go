package config

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// InitNeo4j initializes the Neo4j driver and returns it.
func InitNeo4j(cfg Neo4jConfig) (neo4j.DriverWithContext, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}
	return neo4j.NewDriverWithContext(cfg.URI, auth)
}
