package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"refurbtracker/internal/domain"
)

// maxBatchEntries bounds how many writes go into one transaction when the
// full product history is persisted after a pass.
const maxBatchEntries = 500

// ErrRuleNotFound is returned when a rule id does not exist under a user.
var ErrRuleNotFound = errors.New("tracking rule not found")

// Key layout:
//
//	product:<productID>          -> domain.Product
//	user:<userID>                -> domain.User
//	user:<userID>:rule:<ruleID>  -> domain.TrackingRule
//	system:state                 -> domain.SystemState
//	notification:<userID>:<ts>   -> domain.NotificationRecord
const (
	productPrefix      = "product:"
	userPrefix         = "user:"
	rulePart           = ":rule:"
	systemStateKey     = "system:state"
	notificationPrefix = "notification:"
)

// BadgerRepository implements Repository on an embedded BadgerDB.
type BadgerRepository struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerRepository opens the database at the specified path.
func NewBadgerRepository(dbPath string, logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}
	logger.WithField("path", dbPath).Info("BadgerDB opened")

	return &BadgerRepository{
		db:  db,
		log: logger.WithField("component", "repository"),
	}, nil
}

// Close closes the database connection.
func (r *BadgerRepository) Close() error {
	r.log.Info("Closing BadgerDB")
	return r.db.Close()
}

func productKeyFor(p domain.Product) []byte {
	return []byte(productPrefix + domain.ProductID(p.ProductKey))
}

func userKey(userID int64) []byte {
	return []byte(fmt.Sprintf("user:%d", userID))
}

func ruleKey(userID int64, ruleID string) []byte {
	return []byte(fmt.Sprintf("user:%d:rule:%s", userID, ruleID))
}

func rulePrefix(userID int64) []byte {
	return []byte(fmt.Sprintf("user:%d:rule:", userID))
}

// GetProductHistory loads every persisted product, keyed by ProductKey.
func (r *BadgerRepository) GetProductHistory(_ context.Context) (map[string]domain.Product, error) {
	history := make(map[string]domain.Product)
	err := r.viewPrefix([]byte(productPrefix), func(_ []byte, val []byte) error {
		var p domain.Product
		if err := json.Unmarshal(val, &p); err != nil {
			return fmt.Errorf("failed to unmarshal product: %w", err)
		}
		history[p.ProductKey] = p
		return nil
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to load product history")
		return nil, err
	}
	return history, nil
}

// SaveProductHistory upserts all products in chunks of maxBatchEntries so a
// large catalog never exceeds the per-transaction limit.
func (r *BadgerRepository) SaveProductHistory(_ context.Context, products []domain.Product) error {
	for start := 0; start < len(products); start += maxBatchEntries {
		end := start + maxBatchEntries
		if end > len(products) {
			end = len(products)
		}
		chunk := products[start:end]

		err := r.db.Update(func(txn *badger.Txn) error {
			for _, p := range chunk {
				data, err := json.Marshal(p)
				if err != nil {
					return fmt.Errorf("failed to marshal product %s: %w", p.ProductKey, err)
				}
				if err := txn.SetEntry(badger.NewEntry(productKeyFor(p), data)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			r.log.WithError(err).Error("Failed to save product history chunk")
			return fmt.Errorf("failed to save product history: %w", err)
		}
	}
	r.log.WithField("count", len(products)).Debug("Product history saved")
	return nil
}

// SaveUser stores or updates a user record.
func (r *BadgerRepository) SaveUser(_ context.Context, user domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = time.Now()

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(userKey(user.ID), data))
	})
	if err != nil {
		r.log.WithError(err).WithField("user_id", user.ID).Error("Failed to save user")
		return fmt.Errorf("failed to save user %d: %w", user.ID, err)
	}
	return nil
}

// GetUser loads one user by id. A missing user is an error.
func (r *BadgerRepository) GetUser(_ context.Context, userID int64) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return user, nil
}

// GetActiveUsers returns every user whose IsActive flag is set.
func (r *BadgerRepository) GetActiveUsers(_ context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.viewPrefix([]byte(userPrefix), func(key []byte, val []byte) error {
		// The user prefix also covers rule keys; skip those.
		if bytes.Contains(key, []byte(rulePart)) {
			return nil
		}
		var u domain.User
		if err := json.Unmarshal(val, &u); err != nil {
			return fmt.Errorf("failed to unmarshal user: %w", err)
		}
		if u.IsActive {
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to load active users")
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// GetUserTrackingRules returns all of one user's rules, newest last.
func (r *BadgerRepository) GetUserTrackingRules(_ context.Context, userID int64) ([]domain.TrackingRule, error) {
	var rules []domain.TrackingRule
	err := r.viewPrefix(rulePrefix(userID), func(_ []byte, val []byte) error {
		var rule domain.TrackingRule
		if err := json.Unmarshal(val, &rule); err != nil {
			return fmt.Errorf("failed to unmarshal rule: %w", err)
		}
		rules = append(rules, rule)
		return nil
	})
	if err != nil {
		r.log.WithError(err).WithField("user_id", userID).Error("Failed to load tracking rules")
		return nil, err
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })
	return rules, nil
}

// SaveTrackingRule stores or updates one rule under its owning user.
func (r *BadgerRepository) SaveTrackingRule(_ context.Context, userID int64, rule domain.TrackingRule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = time.Now()
	}

	data, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal rule: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(ruleKey(userID, rule.ID), data))
	})
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"rule_id": rule.ID,
		}).Error("Failed to save tracking rule")
		return fmt.Errorf("failed to save rule %s for user %d: %w", rule.ID, userID, err)
	}
	return nil
}

// DeleteTrackingRule removes one rule. Deleting an unknown rule returns
// ErrRuleNotFound so callers can distinguish it from a store failure.
func (r *BadgerRepository) DeleteTrackingRule(_ context.Context, userID int64, ruleID string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		key := ruleKey(userID, ruleID)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrRuleNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete rule %s for user %d: %w", ruleID, userID, err)
	}
	return nil
}

// GetSystemState loads the singleton tracker state. A store that has never
// seen a state write yields the zero state, not an error.
func (r *BadgerRepository) GetSystemState(_ context.Context) (domain.SystemState, error) {
	var state domain.SystemState
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(systemStateKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if err != nil {
		return domain.SystemState{}, fmt.Errorf("failed to get system state: %w", err)
	}
	return state, nil
}

// SaveSystemState persists the tracker's running flag.
func (r *BadgerRepository) SaveSystemState(_ context.Context, isTracking bool) error {
	state := domain.SystemState{IsTracking: isTracking, LastUpdated: time.Now()}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal system state: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(systemStateKey), data))
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to save system state")
		return fmt.Errorf("failed to save system state: %w", err)
	}
	return nil
}

// SaveNotification records a delivered notification for auditing.
func (r *BadgerRepository) SaveNotification(_ context.Context, userID int64, message string, productIDs []string) error {
	rec := domain.NotificationRecord{
		UserID:     userID,
		Message:    message,
		ProductIDs: productIDs,
		SentAt:     time.Now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	key := []byte(fmt.Sprintf("notification:%d:%d", userID, rec.SentAt.UnixNano()))
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, data))
	})
	if err != nil {
		r.log.WithError(err).WithField("user_id", userID).Error("Failed to save notification record")
		return fmt.Errorf("failed to save notification for user %d: %w", userID, err)
	}
	return nil
}

// Stats counts products, active users and rules with key-only iteration
// where the value is not needed.
func (r *BadgerRepository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(productPrefix)); it.ValidForPrefix([]byte(productPrefix)); it.Next() {
			stats.Products++
		}
		for it.Seek([]byte(userPrefix)); it.ValidForPrefix([]byte(userPrefix)); it.Next() {
			if bytes.Contains(it.Item().Key(), []byte(rulePart)) {
				stats.Rules++
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}

	users, err := r.GetActiveUsers(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.ActiveUsers = len(users)
	return stats, nil
}

// viewPrefix iterates all values under prefix inside one read transaction.
func (r *BadgerRepository) viewPrefix(prefix []byte, fn func(key, val []byte) error) error {
	return r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				valCopy := make([]byte, len(val))
				copy(valCopy, val)
				return fn(item.Key(), valCopy)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
