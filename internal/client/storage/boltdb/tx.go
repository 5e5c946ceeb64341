package boltdb

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/milkledger/internal/client/storage"
)

// boltTx реализует storage.Tx поверх транзакции bbolt
type boltTx struct {
	tx *bbolt.Tx
}

// Get decodes record with given id into dst
func (t *boltTx) Get(collection, id string, dst any) error {
	root := t.tx.Bucket([]byte(collection))
	if root == nil {
		return fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}
	data := root.Bucket(bucketData)
	if data == nil {
		return fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}

	value := data.Get([]byte(id))
	if value == nil {
		return fmt.Errorf("%s/%s: %w", collection, id, storage.ErrNotFound)
	}

	return storage.Decode(value, dst)
}

// Set creates or replaces record, assigning insertion sequence to new ids
func (t *boltTx) Set(collection string, rec storage.Record) error {
	id, value, err := storage.Encode(rec)
	if err != nil {
		return err
	}

	data, order, seqs, err := t.buckets(collection)
	if err != nil {
		return err
	}

	key := []byte(id)
	// Новый id получает следующий номер в порядке вставки
	if seqs.Get(key) == nil {
		seq, err := order.NextSequence()
		if err != nil {
			return storage.Unavailable("boltdb next sequence", err)
		}
		if err := order.Put(seqKey(seq), key); err != nil {
			return storage.Unavailable("boltdb put order", err)
		}
		if err := seqs.Put(key, seqKey(seq)); err != nil {
			return storage.Unavailable("boltdb put seq", err)
		}
	}

	if err := data.Put(key, value); err != nil {
		return storage.Unavailable("boltdb put record", err)
	}

	return nil
}

// Delete removes record and its insertion sequence
func (t *boltTx) Delete(collection, id string) error {
	root := t.tx.Bucket([]byte(collection))
	if root == nil {
		return nil
	}

	data, order, seqs := root.Bucket(bucketData), root.Bucket(bucketOrder), root.Bucket(bucketSeq)
	if data == nil || order == nil || seqs == nil {
		return storage.Unavailable("boltdb delete", fmt.Errorf("collection %s is corrupted", collection))
	}

	key := []byte(id)
	if seq := seqs.Get(key); seq != nil {
		// seq копируем: после Delete память значения может быть переиспользована
		seqCopy := append([]byte(nil), seq...)
		if err := order.Delete(seqCopy); err != nil {
			return storage.Unavailable("boltdb delete order", err)
		}
		if err := seqs.Delete(key); err != nil {
			return storage.Unavailable("boltdb delete seq", err)
		}
	}

	if err := data.Delete(key); err != nil {
		return storage.Unavailable("boltdb delete record", err)
	}

	return nil
}

// buckets создает bucket коллекции и вложенные buckets если они не существуют
func (t *boltTx) buckets(collection string) (data, order, seqs *bbolt.Bucket, err error) {
	root, err := t.tx.CreateBucketIfNotExists([]byte(collection))
	if err != nil {
		return nil, nil, nil, storage.Unavailable("boltdb create collection bucket", err)
	}
	if data, err = root.CreateBucketIfNotExists(bucketData); err != nil {
		return nil, nil, nil, storage.Unavailable("boltdb create data bucket", err)
	}
	if order, err = root.CreateBucketIfNotExists(bucketOrder); err != nil {
		return nil, nil, nil, storage.Unavailable("boltdb create order bucket", err)
	}
	if seqs, err = root.CreateBucketIfNotExists(bucketSeq); err != nil {
		return nil, nil, nil, storage.Unavailable("boltdb create seq bucket", err)
	}
	return data, order, seqs, nil
}
