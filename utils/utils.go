package utils

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/mitchellh/hashstructure"
	"github.com/oklog/ulid"
	"sigs.k8s.io/yaml"
)

var (
	ulidMutex = sync.Mutex{}
	entropy   = ulid.Monotonic(rand.Reader, 0)

	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate runs struct tag validation on the passed pointer
func Validate[T any](structure *T) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	return validate.Struct(structure)
}

// UnmarshalFile reads a json or yaml file into dest; yaml goes through its json form so json tags apply
func UnmarshalFile(file string, dest any) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	if ext := strings.ToLower(filepath.Ext(file)); ext == ".yaml" || ext == ".yml" {
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return fmt.Errorf("failed to convert yaml file %s: %w", file, err)
		}
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", file, err)
	}
	return nil
}

// ComputeConfigHash hashes any configuration value into a short stable identifier
func ComputeConfigHash(value any) string {
	hash, err := hashstructure.Hash(value, nil)
	if err != nil {
		return "unknown"
	}

	return fmt.Sprintf("%x", hash)
}

func ULID() string {
	return genULID(time.Now())
}

func genULID(t time.Time) string {
	ulidMutex.Lock()
	defer ulidMutex.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		// monotonic entropy overflows only within a single millisecond
		return strconv.FormatInt(t.UnixNano(), 10)
	}
	return id.String()
}

// TimestampedFileName returns a name unique to this process run
func TimestampedFileName(extension string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("%s_%s.%s", now.Format("20060102T150405"), genULID(now), extension)
}
