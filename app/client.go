package app

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	elasticv7import "github.com/olivere/elastic/v7"
	"go.uber.org/zap"

	"github.com/pteich/elastic-status-history/elastic"
	elasticsqlite "github.com/pteich/elastic-status-history/elastic/sqlite"
	elasticv7 "github.com/pteich/elastic-status-history/elastic/v7"
	elasticv8 "github.com/pteich/elastic-status-history/elastic/v8"
	elasticv9 "github.com/pteich/elastic-status-history/elastic/v9"
	"github.com/pteich/elastic-status-history/flags"
)

func createClient(conf *flags.Flags, logger *zap.Logger) (elastic.Client, error) {
	if conf.Backend == flags.BackendSQLite {
		return elasticsqlite.Open(conf.SQLitePath)
	}
	if conf.Backend != "" && conf.Backend != flags.BackendElastic {
		return nil, fmt.Errorf("unsupported backend %q", conf.Backend)
	}

	refresh, err := parseRefresh(conf.Refresh)
	if err != nil {
		return nil, err
	}

	tlsCfg := &tls.Config{
		InsecureSkipVerify: !conf.ElasticVerifySSL,
	}

	if conf.ElasticClientCrt != "" && conf.ElasticClientKey != "" {
		cert, err := tls.LoadX509KeyPair(conf.ElasticClientCrt, conf.ElasticClientKey)
		if err != nil {
			return nil, err
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	tr := &http.Transport{
		TLSClientConfig: tlsCfg,
	}
	httpClient := &http.Client{Transport: tr}

	switch conf.ElasticVersion {
	case 7:
		esLogger := zap.NewStdLog(logger.Named("elastic"))
		esOpts := []elasticv7import.ClientOptionFunc{
			elasticv7.SetHttpClient(httpClient),
			elasticv7.SetURL(conf.ElasticURL),
			elasticv7.SetSniff(false),
			elasticv7.SetHealthcheckInterval(60 * time.Second),
			elasticv7.SetErrorLog(esLogger),
		}

		if conf.Trace {
			esOpts = append(esOpts, elasticv7.SetTraceLog(esLogger))
		}

		if conf.ElasticUser != "" && conf.ElasticPass != "" {
			esOpts = append(esOpts, elasticv7.SetBasicAuth(conf.ElasticUser, conf.ElasticPass))
		}

		client, err := elasticv7.NewClient(esOpts)
		if err != nil {
			return nil, err
		}
		return client.WithRefresh(refresh), nil

	case 8:
		cfg := elasticv8.NewConfig(conf.ElasticURL, conf.ElasticUser, conf.ElasticPass, httpClient)
		client, err := elasticv8.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client.WithRefresh(refresh), nil

	case 9:
		cfg := elasticv9.NewConfig(conf.ElasticURL, conf.ElasticUser, conf.ElasticPass, httpClient)
		client, err := elasticv9.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client.WithRefresh(refresh), nil

	default:
		return nil, errors.New("unsupported ElasticSearch version")
	}
}

// parseRefresh accepts the refresh values of the index API. Empty means wait_for.
func parseRefresh(value string) (string, error) {
	switch value {
	case "":
		return "wait_for", nil
	case "wait_for", "true", "false":
		return value, nil
	default:
		return "", fmt.Errorf("unsupported refresh policy %q", value)
	}
}
