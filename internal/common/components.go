package common

const (
	ComponentDownloader  = "downloader"
	ComponentLogFetcher  = "log-fetcher"
	ComponentSyncManager = "sync-manager"
	ComponentCoordinator = "indexer-coordinator"
	ComponentLedger      = "ledger"
	ComponentStore       = "store"
	ComponentRewards     = "rewards"
	ComponentAPI         = "api"
)

var AllComponents = map[string]struct{}{
	ComponentDownloader:  {},
	ComponentLogFetcher:  {},
	ComponentSyncManager: {},
	ComponentCoordinator: {},
	ComponentLedger:      {},
	ComponentStore:       {},
	ComponentRewards:     {},
	ComponentAPI:         {},
}
