package deckstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"partydeck.io/server/deck"
)

const redisDeckIndexKey = "decks"

type RedisDeckStore struct {
	rdclient *redis.Client
}

func NewRedisDeckStore(redisURL string, redisPW string, redisDB int) *RedisDeckStore {
	rdclient := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: redisPW,
		DB:       redisDB,
	})
	return &RedisDeckStore{
		rdclient: rdclient,
	}
}

func deckKey(deckID string) string {
	return fmt.Sprintf("deck|%s", deckID)
}

func (r *RedisDeckStore) Ping(ctx context.Context) error {
	return r.rdclient.Ping(ctx).Err()
}

func (r *RedisDeckStore) Load(deckID string) (*deck.Deck, error) {
	deckBytes, err := r.rdclient.Get(context.Background(), deckKey(deckID)).Result()
	if err == redis.Nil {
		return nil, DeckNotFoundError{ID: deckID}
	} else if err != nil {
		return nil, errors.Wrapf(err, "Unable to load deck [%s]", deckID)
	}
	return decode([]byte(deckBytes))
}

func (r *RedisDeckStore) Save(d *deck.Deck) error {
	b, err := encode(d)
	if err != nil {
		return err
	}
	ctx := context.Background()
	_, err = r.rdclient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, deckKey(d.Meta.ID), b, 0)
		pipe.SAdd(ctx, redisDeckIndexKey, d.Meta.ID)
		return nil
	})
	return err
}

func (r *RedisDeckStore) Remove(deckID string) error {
	ctx := context.Background()
	_, err := r.rdclient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, deckKey(deckID))
		pipe.SRem(ctx, redisDeckIndexKey, deckID)
		return nil
	})
	return err
}

func (r *RedisDeckStore) List() ([]Summary, error) {
	ids, err := r.rdclient.SMembers(context.Background(), redisDeckIndexKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "Unable to list decks")
	}
	sort.Strings(ids)
	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		d, err := r.Load(id)
		if err != nil {
			if _, missing := err.(DeckNotFoundError); missing {
				continue
			}
			return nil, err
		}
		summaries = append(summaries, summarize(d))
	}
	return summaries, nil
}

func (r *RedisDeckStore) Close() error {
	return r.rdclient.Close()
}
