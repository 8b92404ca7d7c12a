package config

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/common"
	"github.com/xiaonanln/mapworld/engine/consts"
	"github.com/xiaonanln/mapworld/engine/gwlog"
)

const (
	_DEFAULT_CONFIG_FILE      = "mapworld.ini"
	_DEFAULT_IP               = "0.0.0.0"
	_DEFAULT_PORT             = 16800
	_DEFAULT_WS_PATH          = "/ws"
	_DEFAULT_LOG_LEVEL        = "debug"
	_DEFAULT_STORAGE_DB       = "mapworld"
	_DEFAULT_STORAGE_DIR      = "maps"
	_DEFAULT_STATUS_INTERVAL  = 0
	_DEFAULT_STORAGE_TYPE     = "filesystem"
	_DEFAULT_STORAGE_REDIS_DB = "0"
)

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	mapWorldConfig *MapWorldConfig
	configLock     sync.Mutex
)

// ServerConfig defines fields of the [server] section
type ServerConfig struct {
	Ip             string
	Port           int
	WSPath         string
	LogFile        string
	LogStderr      bool
	LogLevel       string
	GoMaxProcs     int
	SendQueueSize  int
	StatusInterval time.Duration
	DefaultWidth   int
	DefaultHeight  int
}

// ListenAddr returns the address the server listens on
func (sc *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", sc.Ip, sc.Port)
}

// StorageConfig defines fields of storage config
type StorageConfig struct {
	Type       string // Type of storage (filesystem, mongodb, redis, redis_cluster)
	Directory  string // Directory of filesystem storage (filesystem)
	Url        string // Connection URL (mongodb, redis)
	DB         string // Database name (mongodb, redis)
	StartNodes common.StringSet
}

// MapWorldConfig defines the total config file structure
type MapWorldConfig struct {
	Server  ServerConfig
	Storage StorageConfig
}

// SetConfigFile sets the config file path (mapworld.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// GetConfigDir returns the directory of the config file
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total config
func Get() *MapWorldConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if mapWorldConfig == nil {
		mapWorldConfig = readMapWorldConfig()
	}
	return mapWorldConfig
}

// Reload forces the config to be read again
func Reload() *MapWorldConfig {
	configLock.Lock()
	mapWorldConfig = nil
	configLock.Unlock()

	return Get()
}

// GetServer returns the server config
func GetServer() *ServerConfig {
	return &Get().Server
}

// GetStorage returns the storage config
func GetStorage() *StorageConfig {
	return &Get().Storage
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readMapWorldConfig() *MapWorldConfig {
	config := MapWorldConfig{}
	gwlog.Infof("Using config file: %s", configFilePath)
	// a missing config file leaves every option at its default
	iniFile, err := ini.LooseLoad(configFilePath)
	checkConfigError(err, "")

	readServerConfig(iniFile.Section("server"), &config.Server)
	readStorageConfig(iniFile.Section("storage"), &config.Storage)

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		if secName == strings.ToLower(ini.DefaultSection) || secName == "server" || secName == "storage" {
			continue
		}
		gwlog.Errorf("unknown section: %s", secName)
	}
	return &config
}

func readServerConfig(sec *ini.Section, sc *ServerConfig) {
	sc.Ip = _DEFAULT_IP
	sc.Port = _DEFAULT_PORT
	sc.WSPath = _DEFAULT_WS_PATH
	sc.LogFile = "mapworld.log"
	sc.LogStderr = true
	sc.LogLevel = _DEFAULT_LOG_LEVEL
	sc.GoMaxProcs = 0
	sc.SendQueueSize = consts.CLIENT_PROXY_SEND_QUEUE_SIZE
	sc.StatusInterval = _DEFAULT_STATUS_INTERVAL
	sc.DefaultWidth = consts.DEFAULT_MAP_WIDTH
	sc.DefaultHeight = consts.DEFAULT_MAP_HEIGHT

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "ip" {
			sc.Ip = key.MustString(sc.Ip)
		} else if name == "port" {
			sc.Port = key.MustInt(sc.Port)
		} else if name == "ws_path" {
			sc.WSPath = key.MustString(sc.WSPath)
		} else if name == "log_file" {
			sc.LogFile = key.MustString(sc.LogFile)
		} else if name == "log_stderr" {
			sc.LogStderr = key.MustBool(sc.LogStderr)
		} else if name == "log_level" {
			sc.LogLevel = key.MustString(sc.LogLevel)
		} else if name == "gomaxprocs" {
			sc.GoMaxProcs = key.MustInt(sc.GoMaxProcs)
		} else if name == "send_queue_size" {
			sc.SendQueueSize = key.MustInt(sc.SendQueueSize)
		} else if name == "status_interval" {
			sc.StatusInterval = time.Second * time.Duration(key.MustInt(0))
		} else if name == "default_width" {
			sc.DefaultWidth = key.MustInt(sc.DefaultWidth)
		} else if name == "default_height" {
			sc.DefaultHeight = key.MustInt(sc.DefaultHeight)
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}

	validateServerConfig(sc)
}

func validateServerConfig(sc *ServerConfig) {
	if sc.Port <= 0 || sc.Port > 65535 {
		gwlog.Panicf("invalid port in server config: %d", sc.Port)
	}
	if !strings.HasPrefix(sc.WSPath, "/") {
		gwlog.Panicf("ws_path must start with /: %s", sc.WSPath)
	}
	if sc.SendQueueSize <= 0 {
		gwlog.Panicf("send_queue_size must be positive: %d", sc.SendQueueSize)
	}
	if _, ok := gwlog.ParseLevel(sc.LogLevel); !ok {
		gwlog.Panicf("invalid log_level in server config: %s", sc.LogLevel)
	}
	for _, dim := range []int{sc.DefaultWidth, sc.DefaultHeight} {
		if dim < consts.MIN_MAP_DIMENSION || dim > consts.MAX_MAP_DIMENSION {
			gwlog.Panicf("default map dimension out of range: %d", dim)
		}
	}
}

func readStorageConfig(sec *ini.Section, config *StorageConfig) {
	// setup default values
	config.Type = _DEFAULT_STORAGE_TYPE
	config.Directory = _DEFAULT_STORAGE_DIR
	config.DB = _DEFAULT_STORAGE_DB
	config.Url = ""
	config.StartNodes = common.StringSet{}

	dbSet := false
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "type" {
			config.Type = key.MustString(config.Type)
		} else if name == "directory" {
			config.Directory = key.MustString(config.Directory)
		} else if name == "url" {
			config.Url = key.MustString(config.Url)
		} else if name == "db" {
			config.DB = key.MustString(config.DB)
			dbSet = true
		} else if strings.HasPrefix(name, "start_nodes_") {
			config.StartNodes.Add(key.MustString(""))
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}

	if config.Type == "redis" && !dbSet {
		config.DB = _DEFAULT_STORAGE_REDIS_DB
	}

	validateStorageConfig(config)
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		gwlog.Panicf("read config error: %s", msg)
	}
}

func validateStorageConfig(config *StorageConfig) {
	if config.Type == "filesystem" {
		// directory must be set
		if config.Directory == "" {
			gwlog.Panicf("directory is not set in %s storage config", config.Type)
		}
	} else if config.Type == "mongodb" {
		if config.Url == "" {
			gwlog.Panicf("url is not set in %s storage config", config.Type)
		}
		if config.DB == "" {
			gwlog.Panicf("db is not set in %s storage config", config.Type)
		}
	} else if config.Type == "redis" {
		if config.Url == "" {
			gwlog.Panicf("url is not set in %s storage config", config.Type)
		}
		if _, err := strconv.Atoi(config.DB); err != nil {
			gwlog.Panic(errors.Wrap(err, "redis db must be integer"))
		}
	} else if config.Type == "redis_cluster" {
		if len(config.StartNodes) == 0 {
			gwlog.Panicf("must have at least 1 start_nodes for [storage].redis_cluster")
		}
		for s := range config.StartNodes {
			if s == "" {
				gwlog.Panicf("start_nodes must not be empty")
			}
		}
	} else {
		gwlog.Panicf("unknown storage type: %s", config.Type)
	}
}
