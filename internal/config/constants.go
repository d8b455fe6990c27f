package config

// DefaultDatabasePath is the default path for the ledger database
const DefaultDatabasePath = "./libtrack.db"

// EnvPrefix namespaces the environment variables read by NewConfig.
const EnvPrefix = "LIBTRACK"
