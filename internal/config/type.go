package config

type Config struct {
	Port            int      `mapstructure:"port"`
	ReplicationPort int      `mapstructure:"replication_port"`
	Replicas        []string `mapstructure:"replicas"`
	TelemetryPort   int      `mapstructure:"telemetry_port"`
	DataDir         string   `mapstructure:"data_dir"`
	BackupEverySec  int      `mapstructure:"backup_every_sec"`
	LogLevel        string   `mapstructure:"log_level"`
	LogFile         string   `mapstructure:"log_file"`
}
