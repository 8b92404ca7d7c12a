package mapstoragemongodb

import (
	"io"

	"github.com/xiaonanln/mapworld/engine/gwlog"
	"github.com/xiaonanln/mapworld/engine/storage/storage_common"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

const (
	_DEFAULT_DB_NAME = "mapworld"
	_COLLECTION_NAME = "maps"
)

type mongoDBMapStorage struct {
	session *mgo.Session
	dbname  string
}

type mapDoc struct {
	Name string `bson:"_id"`
	Data []byte `bson:"data"`
}

// OpenMongoDB opens mongodb as map storage
func OpenMongoDB(url string, dbname string) (storagecommon.MapStorage, error) {
	gwlog.Debugf("Connecting MongoDB ...")
	session, err := mgo.Dial(url)
	if err != nil {
		return nil, err
	}

	session.SetMode(mgo.Monotonic, true)
	if dbname == "" {
		// if db is not specified, use default
		dbname = _DEFAULT_DB_NAME
	}
	return &mongoDBMapStorage{
		session: session,
		dbname:  dbname,
	}, nil
}

// withCollection runs f with the map collection on a copied session so concurrent saves do not share a socket
func (ms *mongoDBMapStorage) withCollection(f func(col *mgo.Collection) error) error {
	session := ms.session.Copy()
	defer session.Close()
	return f(session.DB(ms.dbname).C(_COLLECTION_NAME))
}

func (ms *mongoDBMapStorage) Write(name string, data []byte) error {
	return ms.withCollection(func(col *mgo.Collection) error {
		_, err := col.UpsertId(name, bson.M{
			"$set": bson.M{"data": data},
		})
		return err
	})
}

func (ms *mongoDBMapStorage) Read(name string) ([]byte, error) {
	var doc mapDoc
	err := ms.withCollection(func(col *mgo.Collection) error {
		return col.FindId(name).One(&doc)
	})
	if err == mgo.ErrNotFound {
		return nil, storagecommon.ErrNotExist
	} else if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (ms *mongoDBMapStorage) List() ([]string, error) {
	var docs []bson.M
	err := ms.withCollection(func(col *mgo.Collection) error {
		return col.Find(nil).Select(bson.M{"_id": 1}).All(&docs)
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		if name, ok := doc["_id"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (ms *mongoDBMapStorage) Exists(name string) (bool, error) {
	var n int
	err := ms.withCollection(func(col *mgo.Collection) (err error) {
		n, err = col.FindId(name).Count()
		return
	})
	return n > 0, err
}

func (ms *mongoDBMapStorage) Close() {
	ms.session.Close()
}

func (ms *mongoDBMapStorage) IsEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
