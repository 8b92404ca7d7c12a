package mapstorageredis

import (
	"io"
	"strings"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	. "github.com/xiaonanln/mapworld/engine/storage/storage_common"
)

const keyPrefix = "map$"

type redisMapStorage struct {
	pool *redis.Pool
}

// OpenRedis opens redis as map storage. url is either host:port or a redis:// URL.
func OpenRedis(url string, dbindex int) (MapStorage, error) {
	dial := func() (redis.Conn, error) {
		if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
			return redis.DialURL(url, redis.DialDatabase(dbindex))
		}
		return redis.Dial("tcp", url, redis.DialDatabase(dbindex))
	}

	// make sure redis is reachable before serving
	c, err := dial()
	if err != nil {
		return nil, errors.Wrap(err, "redis dail failed")
	}
	c.Close()

	ms := &redisMapStorage{
		pool: &redis.Pool{
			Dial:        dial,
			MaxIdle:     8,
			IdleTimeout: 4 * time.Minute,
		},
	}
	return ms, nil
}

func mapKey(name string) string {
	return keyPrefix + name
}

func (ms *redisMapStorage) List() ([]string, error) {
	c := ms.pool.Get()
	defer c.Close()

	keyMatch := keyPrefix + "*"
	cursor := interface{}("0")
	var names []string
	for {
		r, err := redis.Values(c.Do("SCAN", cursor, "MATCH", keyMatch, "COUNT", 10000))
		if err != nil {
			return nil, err
		}
		keys, err := redis.Strings(r[1], nil)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			names = append(names, key[len(keyPrefix):])
		}

		cursor = r[0]
		if isZeroCursor(cursor) {
			break
		}
	}
	return names, nil
}

func isZeroCursor(c interface{}) bool {
	return string(c.([]byte)) == "0"
}

func (ms *redisMapStorage) Write(name string, data []byte) error {
	c := ms.pool.Get()
	defer c.Close()
	_, err := c.Do("SET", mapKey(name), data)
	return err
}

func (ms *redisMapStorage) Read(name string) ([]byte, error) {
	c := ms.pool.Get()
	defer c.Close()
	data, err := redis.Bytes(c.Do("GET", mapKey(name)))
	if err == redis.ErrNil {
		return nil, ErrNotExist
	}
	return data, err
}

func (ms *redisMapStorage) Exists(name string) (bool, error) {
	c := ms.pool.Get()
	defer c.Close()
	return redis.Bool(c.Do("EXISTS", mapKey(name)))
}

func (ms *redisMapStorage) Close() {
	ms.pool.Close()
}

func (ms *redisMapStorage) IsEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
