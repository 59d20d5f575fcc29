package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sft.conf")
	content := `# node config
datadir = /var/lib/sft

rpc.port = 9000
rpc.addr = "0.0.0.0"
controllers = 'aabb01, ccdd02'
log.json = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if values["datadir"] != "/var/lib/sft" {
		t.Errorf("datadir = %q", values["datadir"])
	}
	if values["rpc.addr"] != "0.0.0.0" {
		t.Errorf("rpc.addr = %q (quotes should be stripped)", values["rpc.addr"])
	}
	if values["rpc.port"] != "9000" {
		t.Errorf("rpc.port = %q", values["rpc.port"])
	}

	cfg := Default()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.DataDir != "/var/lib/sft" || cfg.RPC.Port != 9000 || cfg.RPC.Addr != "0.0.0.0" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Controllers) != 2 || cfg.Controllers[0] != "aabb01" || cfg.Controllers[1] != "ccdd02" {
		t.Fatalf("controllers = %v", cfg.Controllers)
	}
	if !cfg.Log.JSON {
		t.Error("log.json not applied")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("values = %v", values)
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sft.conf")
	if err := os.WriteFile(path, []byte("no equals sign"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("malformed line should fail")
	}
}

func TestSetConfigValue(t *testing.T) {
	cfg := Default()

	if err := setConfigValue(cfg, "rpc", "off"); err != nil {
		t.Fatalf("rpc off: %v", err)
	}
	if cfg.RPC.Enabled {
		t.Error("rpc.enabled should be false")
	}
	if err := setConfigValue(cfg, "rpc.allowed", "127.0.0.1, 10.0.0.0/8"); err != nil {
		t.Fatalf("rpc.allowed: %v", err)
	}
	if len(cfg.RPC.AllowedIPs) != 2 || cfg.RPC.AllowedIPs[1] != "10.0.0.0/8" {
		t.Fatalf("allowed = %v", cfg.RPC.AllowedIPs)
	}

	if err := setConfigValue(cfg, "rpc.port", "not-a-number"); err == nil {
		t.Error("bad port should fail")
	}
	if err := setConfigValue(cfg, "log.json", "maybe"); err == nil {
		t.Error("bad boolean should fail")
	}
	if err := setConfigValue(cfg, "no.such.key", "1"); err == nil {
		t.Error("unknown key should fail")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config: %v", err)
	}

	bad := Default()
	bad.DataDir = ""
	if err := Validate(bad); err == nil {
		t.Error("empty datadir should fail")
	}

	bad = Default()
	bad.RPC.Port = 70000
	if err := Validate(bad); err == nil {
		t.Error("out-of-range port should fail")
	}

	bad = Default()
	bad.Log.Level = "verbose"
	if err := Validate(bad); err == nil {
		t.Error("unknown log level should fail")
	}

	bad = Default()
	bad.Controllers = []string{"not hex!"}
	if err := Validate(bad); err == nil {
		t.Error("non-hex controller should fail")
	}

	bad = Default()
	bad.Controllers = []string{"aabb01", "AABB01"}
	if err := Validate(bad); err == nil {
		t.Error("duplicate controllers should fail")
	}

	// Principals are normalized to lowercase.
	cfg = Default()
	cfg.Controllers = []string{" AABB01 "}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Controllers[0] != "aabb01" {
		t.Fatalf("controllers = %v", cfg.Controllers)
	}
}

func TestGenesis(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.json")
	content := `{
  "symbol": "SFT",
  "name": "My Collection",
  "supply_cap": 10000,
  "minters": ["aabb01"],
  "managers": ["ccdd02"],
  "settings": {"max_take_value": 50}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}

	g, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}
	if g.Symbol != "SFT" || g.Name != "My Collection" || g.SupplyCap != 10000 {
		t.Fatalf("genesis = %+v", g)
	}
	if len(g.Minters) != 1 || len(g.Managers) != 1 {
		t.Fatalf("genesis lists = %+v", g)
	}
	if g.Settings == nil || g.Settings.MaxTakeValue == nil || *g.Settings.MaxTakeValue != 50 {
		t.Fatalf("genesis settings = %+v", g.Settings)
	}

	if err := os.WriteFile(path, []byte(`{"symbol": "SFT"}`), 0o644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	if _, err := LoadGenesis(path); err == nil {
		t.Fatal("genesis without a name should fail")
	}

	if _, err := LoadGenesis(filepath.Join(dir, "absent.json")); err == nil {
		t.Fatal("missing genesis file should fail")
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := &Config{DataDir: "/data"}
	if got := cfg.LedgerDir(); got != filepath.Join("/data", "ledger") {
		t.Errorf("LedgerDir = %q", got)
	}
	if got := cfg.ConfigFile(); got != filepath.Join("/data", "sft.conf") {
		t.Errorf("ConfigFile = %q", got)
	}
	if got := cfg.GenesisFile(); got != filepath.Join("/data", "genesis.json") {
		t.Errorf("GenesisFile = %q", got)
	}
	cfg.Genesis = "/elsewhere/g.json"
	if got := cfg.GenesisFile(); got != "/elsewhere/g.json" {
		t.Errorf("explicit GenesisFile = %q", got)
	}
}
