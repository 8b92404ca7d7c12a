package mapstoragerediscluster

import (
	"io"
	"time"

	rediscluster "github.com/chasex/redis-go-cluster"
	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/storage/storage_common"
)

const (
	keyPrefix = "map$"
	// SCAN does not span cluster nodes, so names are also kept in a set
	indexKey = "map$$index"
)

type redisClusterMapStorage struct {
	c rediscluster.Cluster
}

// OpenRedisCluster opens redis cluster as map storage
func OpenRedisCluster(startNodes []string) (storagecommon.MapStorage, error) {
	c, err := rediscluster.NewCluster(&rediscluster.Options{
		StartNodes:   startNodes,
		ConnTimeout:  10 * time.Second, // Connection timeout
		ReadTimeout:  60 * time.Second, // Read timeout
		WriteTimeout: 60 * time.Second, // Write timeout
		KeepAlive:    1,                // Maximum keep alive connecion in each node
		AliveTime:    10 * time.Minute, // Keep alive timeout
	})

	if err != nil {
		return nil, errors.Wrap(err, "connect redis cluster failed")
	}

	ms := &redisClusterMapStorage{
		c: c,
	}

	return ms, nil
}

func mapKey(name string) string {
	return keyPrefix + name
}

func (ms *redisClusterMapStorage) List() ([]string, error) {
	return redis.Strings(ms.c.Do("SMEMBERS", indexKey))
}

func (ms *redisClusterMapStorage) Write(name string, data []byte) error {
	if _, err := ms.c.Do("SET", mapKey(name), data); err != nil {
		return err
	}
	_, err := ms.c.Do("SADD", indexKey, name)
	return err
}

func (ms *redisClusterMapStorage) Read(name string) ([]byte, error) {
	data, err := redis.Bytes(ms.c.Do("GET", mapKey(name)))
	if err == redis.ErrNil {
		return nil, storagecommon.ErrNotExist
	}
	return data, err
}

func (ms *redisClusterMapStorage) Exists(name string) (bool, error) {
	return redis.Bool(ms.c.Do("EXISTS", mapKey(name)))
}

// Close is a no-op: the cluster client keeps its node connections until the process exits
func (ms *redisClusterMapStorage) Close() {
}

func (ms *redisClusterMapStorage) IsEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
