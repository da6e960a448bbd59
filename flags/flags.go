package flags

import "github.com/pteich/elastic-status-history/formats"

const (
	FormatCSV  = formats.FormatCSV
	FormatJSON = formats.FormatJSON
	FormatRAW  = formats.FormatRAW
)

const (
	ActionRecord   = "record"
	ActionStatus   = "status"
	ActionHistory  = "history"
	ActionScenario = "scenario"
	ActionLive     = "live"
	ActionCatalog  = "catalog"
)

const (
	BackendElastic = "elastic"
	BackendSQLite  = "sqlite"
)

type Flags struct {
	ElasticURL       string `cli:"connect" cliAlt:"c" env:"ELASTIC_URL" usage:"ElasticSearch URL"`
	ElasticUser      string `cli:"user" env:"ELASTIC_USER" usage:"ElasticSearch Username"`
	ElasticPass      string `cli:"pass" env:"ELASTIC_PASS" usage:"ElasticSearch Password"`
	ElasticVerifySSL bool   `cli:"verifySSL" env:"ELASTIC_VERIFY_SSL" usage:"Verify SSL certificate"`
	ElasticVersion   int    `cli:"elastic-version" env:"ELASTIC_VERSION" usage:"ElasticSearch major version [7|8|9]"`
	ElasticClientCrt string `cli:"client-crt" env:"ELASTIC_CLIENT_CRT" usage:"Path to client certificate for mutual TLS"`
	ElasticClientKey string `cli:"client-key" env:"ELASTIC_CLIENT_KEY" usage:"Path to client certificate key for mutual TLS"`
	Backend          string `cli:"backend" env:"BACKEND" usage:"Document store backend [elastic|sqlite]"`
	SQLitePath       string `cli:"sqlite" env:"SQLITE_PATH" usage:"Path to the SQLite database file (or :memory:)"`
	Index            string `cli:"index" cliAlt:"i" env:"INDEX" usage:"Index holding the status history"`
	Action           string `cli:"action" cliAlt:"a" usage:"Action to run [record|status|history|scenario|live|catalog]"`
	Entity           string `cli:"entity" cliAlt:"e" usage:"Entity id"`
	Status           string `cli:"status" usage:"Status to record, comma separated list for the live action"`
	At               string `cli:"at" usage:"Timestamp in RFC3339, defaults to now"`
	ScenarioFile     string `cli:"scenario" usage:"Path to a YAML scenario file"`
	Search           string `cli:"search" cliAlt:"q" usage:"Text to search for in the product catalog"`
	OutFormat        string `cli:"outformat" cliAlt:"f" usage:"Format of the history output. [csv|json|raw]"`
	Outfile          string `cli:"outfile" cliAlt:"o" usage:"Path to output file, - for stdout"`
	PageSize         int    `cli:"size" env:"PAGE_SIZE" usage:"Number of records fetched per scroll page"`
	Duplicates       string `cli:"duplicates" env:"DUPLICATES" usage:"Policy for records with an existing timestamp [overwrite|reject|keep]"`
	Reset            bool   `cli:"reset" usage:"Drop and recreate the history index before running"`
	Gap              int    `cli:"gap" usage:"Milliseconds between status changes of the live action"`
	Refresh          string `cli:"refresh" env:"ELASTIC_REFRESH" usage:"Refresh policy for writes [wait_for|true|false]"`
	Trace            bool   `cli:"trace" env:"ELASTIC_TRACE" usage:"Log ElasticSearch requests"`
	Env              string `cli:"env" env:"ENV" usage:"Logging environment [local|dev|prod]"`
	LogLevel         string `cli:"log-level" env:"LOG_LEVEL" usage:"Log level override [debug|info|warn|error]"`
	MetricsAddr      string `cli:"metrics" env:"METRICS_ADDR" usage:"Listen address for Prometheus metrics, disabled if empty"`
}

// Defaults returns the configuration used when no flag or env var is set.
func Defaults() Flags {
	return Flags{
		ElasticURL:     "http://localhost:9200",
		ElasticVersion: 8,
		Backend:        BackendElastic,
		SQLitePath:     "status-history.db",
		Action:         ActionScenario,
		OutFormat:      FormatCSV,
		Outfile:        "-",
		PageSize:       1000,
		Duplicates:     "overwrite",
		Refresh:        "wait_for",
		Gap:            1000,
		Env:            "local",
	}
}
