// main.go
package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"kitsbackend/internal/catalog"
	"kitsbackend/internal/claim"
	"kitsbackend/internal/config"
	"kitsbackend/internal/data"
	"kitsbackend/internal/fulfill"
	"kitsbackend/internal/kit"
	"kitsbackend/internal/ledger"
	"kitsbackend/internal/logger"
	"kitsbackend/internal/providers"
	"kitsbackend/internal/team"
)

func main() {
	// Step 1: Setup configuration first
	config.LoadEnv()

	// Step 2: Setup logging
	loggerConfig := config.LoggerConfig()
	if err := logger.SetupLogger(loggerConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Only NOW is logging safe to use!
	logger.LogInfo("Environment loaded. Logger ready.")
	config.ConfigurePaths()
	config.LogCurrentEnvironment()

	// Step 3: Database and stores
	if err := data.InitDB(config.DatabasePath); err != nil {
		logger.LogFatal("Failed to initialize database: %v", err)
	}
	defer data.CloseDB()

	if err := data.CreateTables(); err != nil {
		logger.LogFatal("Failed to create tables: %v", err)
	}

	settings := config.LoadEngineSettings()
	kitRepo := data.NewKitRepository()
	ledgerRepo := data.NewLedgerRepository()

	cat := catalog.NewStore(kitRepo)
	led := ledger.NewStore(ledgerRepo)
	loadState(cat, led, kitRepo, ledgerRepo)

	// Step 4: Wipe-epoch sweep, once per detected epoch change
	epoch := ledger.EpochID(worldFromEnv())
	if changed, err := led.ApplyWipe(epoch, settings.Streaks.Enable); err != nil {
		logger.LogError("Wipe sweep incomplete: %v", err)
	} else if changed {
		logger.LogInfo("Wipe sweep applied for epoch %s", epoch)
	}

	// Step 5: Seed default kits (never overwrites existing definitions)
	seedKits(cat, settings)
	if err := cat.SeedFromFile(config.KitSeedFile); err != nil {
		logger.LogError("Kit seed file failed: %v", err)
	}

	// Step 6: Claim engine with host adapters
	host := newStandaloneHost()
	fulfiller := fulfill.NewEngine(host, host, host)
	monitor := team.NewMonitor(settings.TeamUnlock, led, host)
	engine := claim.NewEngine(settings, cat, led, providers.Set{}, fulfiller, host, host, monitor)
	logger.LogInfo("Claim engine ready: %d kits in catalog, %d visible to ungrouped participants",
		len(cat.All()), len(engine.VisibleKits("")))

	// Step 7: Run until shutdown; state must be durable before exit
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.LogInfo("Shutting down, flushing ledger...")
	if err := led.FlushAll(); err != nil {
		logger.LogError("Ledger flush failed: %v", err)
	}
	logger.LogInfo("Shutdown complete")
}

func loadState(cat *catalog.Store, led *ledger.Store, kitRepo *data.KitRepository, ledgerRepo *data.LedgerRepository) {
	// Load faults fall back to empty structures; startup never aborts here.
	defs, err := kitRepo.GetAll()
	if err != nil {
		logger.LogError("Catalog load failed, starting empty: %v", err)
		defs = nil
	}
	cat.Load(defs)

	ledgers, err := ledgerRepo.GetAll()
	if err != nil {
		logger.LogError("Ledger load failed, starting empty: %v", err)
		ledgers = nil
	}
	sizes, err := ledgerRepo.GetGroupSizes()
	if err != nil {
		logger.LogError("Group sizes load failed, starting empty: %v", err)
		sizes = nil
	}
	wipeID, err := ledgerRepo.GetMeta(ledger.MetaWipeKey())
	if err != nil {
		logger.LogError("Wipe tag load failed, starting empty: %v", err)
		wipeID = ""
	}
	led.Load(ledgers, sizes, wipeID)
}

func seedKits(cat *catalog.Store, settings config.EngineSettings) {
	starter := []kit.ItemEntry{
		{ShortName: "stone.pickaxe", Amount: 1, Region: kit.RegionQuick},
		{ShortName: "stonehatchet", Amount: 1, Region: kit.RegionQuick},
		{ShortName: "bandage", Amount: 3, Region: kit.RegionPrimary},
	}
	if err := cat.EnsureExists("starter", starter, "Starter", "Quick start with basic tools", "Starter"); err != nil {
		logger.LogError("Failed to seed starter kit: %v", err)
	}

	// Team threshold kits start empty; admins fill them later.
	tu := settings.TeamUnlock
	if err := cat.EnsureExists(tu.KitAt3, nil, "Team 3+", "For teams of 3 to 5", "Team"); err != nil {
		logger.LogError("Failed to seed %s kit: %v", tu.KitAt3, err)
	}
	if err := cat.EnsureExists(tu.KitAt4, nil, "Team 4+", "For teams of 4 to 5", "Team"); err != nil {
		logger.LogError("Failed to seed %s kit: %v", tu.KitAt4, err)
	}
}

// worldFromEnv reads the host world description used to derive the wipe epoch.
func worldFromEnv() ledger.WorldInfo {
	size, _ := strconv.Atoi(os.Getenv("WORLD_SIZE"))
	seed, _ := strconv.ParseInt(os.Getenv("WORLD_SEED"), 10, 64)

	created := time.Now()
	if raw := os.Getenv("WORLD_CREATED"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			created = t
		} else {
			logger.LogWarn("Ignoring unparsable WORLD_CREATED %q", raw)
		}
	}

	name := os.Getenv("WORLD_MAP")
	if name == "" {
		name = "procedural"
	}
	return ledger.WorldInfo{Map: name, Size: size, Seed: seed, SaveCreated: created}
}
