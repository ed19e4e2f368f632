package table

import (
	"bytes"
	"errors"
	"reflect"

	"github.com/openecu/canup/statedb"
)

// MigrateTables sets the tagged fields of s to tables over db. A nil db
// zeroes the fields instead. Duplicate prefixes are a programming error and
// panic.
func MigrateTables(s interface{}, db statedb.Store) {
	value := reflect.ValueOf(s).Elem()

	var keys uniqKeys
	defer func() {
		if err := keys.Check(); err != nil {
			panic(err)
		}
	}()

	for i := 0; i < value.NumField(); i++ {
		if prefix := value.Type().Field(i).Tag.Get("table"); prefix != "" && prefix != "-" {
			field := value.Field(i)
			var val reflect.Value
			if db != nil {
				keys.Add(prefix)
				table := New(db, []byte(prefix))
				val = reflect.ValueOf(table)
			} else {
				val = reflect.Zero(field.Type())
			}
			field.Set(val)
		}
	}
}

// OpenTables sets the tagged fields of s to whole databases opened through
// the producer, named baseName/prefix.
func OpenTables(s interface{}, producer statedb.DBProducer, baseName string) error {
	value := reflect.ValueOf(s).Elem()

	var keys uniqKeys

	for i := 0; i < value.NumField(); i++ {
		if prefix := value.Type().Field(i).Tag.Get("table"); prefix != "" && prefix != "-" {
			keys.Add(prefix)
			db, err := producer.OpenDB(baseName + "/" + prefix)
			if err != nil {
				return err
			}
			value.Field(i).Set(reflect.ValueOf(db))
		}
	}
	return keys.Check()
}

// CloseTables closes the databases held by the tagged fields of s,
// manually-managed fields included.
func CloseTables(s interface{}) error {
	value := reflect.ValueOf(s).Elem()

	for i := 0; i < value.NumField(); i++ {
		if prefix := value.Type().Field(i).Tag.Get("table"); prefix != "" {
			field := value.Field(i)

			if field.IsNil() {
				continue
			}

			db := field.Interface().(statedb.Store)
			err := db.Close()
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// MigrateCaches sets the tagged fields of c to the get() result. A nil get
// zeroes the fields instead.
func MigrateCaches(c interface{}, get func() interface{}) {
	value := reflect.ValueOf(c).Elem()
	for i := 0; i < value.NumField(); i++ {
		if prefix := value.Type().Field(i).Tag.Get("cache"); prefix != "" {
			field := value.Field(i)
			var cache interface{}
			if get != nil {
				cache = get()
			}
			var val reflect.Value
			if cache != nil {
				val = reflect.ValueOf(cache)
			} else {
				val = reflect.Zero(field.Type())
			}
			field.Set(val)
		}
	}
}

// uniqKeys rejects table prefixes which collide when truncated to the
// shortest prefix length.
type uniqKeys struct {
	len  int
	keys [][]byte
}

func (u *uniqKeys) Add(s string) {
	key := []byte(s)

	if len(u.keys) == 0 || u.len > len(key) {
		u.len = len(key)
	}
	u.keys = append(u.keys, key)
}

func (u *uniqKeys) Check() error {
	for i := 0; i < len(u.keys); i++ {
		for j := i + 1; j < len(u.keys); j++ {
			a := u.keys[i][:u.len]
			b := u.keys[j][:u.len]
			if bytes.Equal(a, b) {
				return errors.New("prefixes '" + string(u.keys[i]) + "' and '" + string(u.keys[j]) + "' are the same")
			}
		}
	}
	return nil
}
