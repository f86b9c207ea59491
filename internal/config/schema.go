package config

// Config is the top-level YAML structure.
type Config struct {
	Version string     `yaml:"version"`
	Log     LogConf    `yaml:"log"`
	Server  ServerConf `yaml:"server"`
	Scene   SceneConf  `yaml:"scene"`
}

// LogConf selects the slog handler.
type LogConf struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ServerConf holds HTTP and executor settings.
type ServerConf struct {
	Addr        string `yaml:"addr"`
	QueueDepth  int    `yaml:"queue_depth"`
	OpTimeoutMs int    `yaml:"op_timeout_ms"`
}

// SceneConf describes how the scene is bootstrapped.
type SceneConf struct {
	Undo       UndoConf       `yaml:"undo"`
	File       string         `yaml:"file"` // imported at startup when set
	Singletons []NodeTemplate `yaml:"singletons"`
	Defaults   []NodeTemplate `yaml:"defaults"`
}

// UndoConf bounds the undo stack.
type UndoConf struct {
	Disabled bool `yaml:"disabled"`
	MaxDepth int  `yaml:"max_depth"`
}

// NodeTemplate is a node described by type tag and attributes.
type NodeTemplate struct {
	Tag       string            `yaml:"tag"`
	Singleton string            `yaml:"singleton"`
	Name      string            `yaml:"name"`
	Attrs     map[string]string `yaml:"attrs"`
}
