package dsmr

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/howeyc/crc16"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
)

var (
	ErrChecksum  = errors.New("telegram checksum mismatch")
	ErrMalformed = errors.New("malformed telegram")
)

var (
	linePattern  = regexp.MustCompile(`^(\d+)-(\d+):(\d+\.\d+\.\d+)((?:\([^)]*\))+)$`)
	groupPattern = regexp.MustCompile(`\(([^)]*)\)`)
)

// RequiresCRC reports whether telegrams of the given protocol version end with a CRC.
func RequiresCRC(version string) bool {
	return version == "V4" || version == "V5"
}

// Parse decodes a single telegram, from the '/' header up to and including the
// '!' trailer with its optional CRC.
func Parse(raw []byte, requireCRC bool) (*model.Telegram, error) {
	start := bytes.IndexByte(raw, '/')
	end := bytes.LastIndexByte(raw, '!')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: missing header or trailer", ErrMalformed)
	}
	if err := checkCRC(raw[start:end+1], strings.TrimSpace(string(raw[end+1:])), requireCRC); err != nil {
		return nil, err
	}

	lines := strings.Split(strings.ReplaceAll(string(raw[start:end]), "\r\n", "\n"), "\n")
	telegram := &model.Telegram{Header: strings.TrimPrefix(lines[0], "/")}
	channels := map[int]int{}

	for _, line := range joinContinuations(lines[1:]) {
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		group, channel, ref := m[1], m[2], m[3]
		values := groupPattern.FindAllStringSubmatch(m[4], -1)

		if f, ok := fields[group+"-"+channel+":"+ref]; ok {
			attr, err := decode(f, values)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, line, err)
			}
			telegram.Attributes = append(telegram.Attributes, attr)
			continue
		}

		f, ok := mbusFields[ref]
		if !ok || group != "0" || channel == "0" {
			continue
		}
		ch, err := strconv.Atoi(channel)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, line)
		}
		attr, err := decode(f, values)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, line, err)
		}
		idx, seen := channels[ch]
		if !seen {
			idx = len(telegram.Devices)
			channels[ch] = idx
			telegram.Devices = append(telegram.Devices, model.Device{Channel: ch})
		}
		telegram.Devices[idx].Attributes = append(telegram.Devices[idx].Attributes, attr)
	}
	return telegram, nil
}

func checkCRC(body []byte, crc string, required bool) error {
	if crc == "" {
		if required {
			return fmt.Errorf("%w: no CRC present", ErrChecksum)
		}
		return nil
	}
	want, err := strconv.ParseUint(crc, 16, 16)
	if err != nil {
		return fmt.Errorf("%w: invalid CRC %q", ErrChecksum, crc)
	}
	if got := crc16.ChecksumIBM(body); uint64(got) != want {
		return fmt.Errorf("%w: got %04X, telegram says %s", ErrChecksum, got, crc)
	}
	return nil
}

// Older meters continue a value on the next line, e.g. the hourly gas reading.
func joinContinuations(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "(") && len(out) > 0 {
			out[len(out)-1] += line
			continue
		}
		out = append(out, line)
	}
	return out
}

func decode(f field, values [][]string) (model.Attribute, error) {
	groups := make([]string, len(values))
	for i, v := range values {
		groups[i] = v[1]
	}
	attr := model.Attribute{Name: f.name}

	var err error
	switch f.kind {
	case kindString:
		attr.Value = groups[0]
	case kindInt:
		attr.Value, attr.Unit, err = decodeInt(groups[0])
	case kindDecimal:
		attr.Value, attr.Unit, err = decodeDecimal(groups[0])
	case kindTimestamp:
		attr.Value, err = decodeTimestamp(groups[0])
	case kindMBus:
		if len(groups) < 2 {
			return attr, errors.New("expected timestamp and reading")
		}
		attr.Value, attr.Unit, err = decodeDecimal(groups[len(groups)-1])
	case kindLegacyGas:
		if len(groups) < 7 {
			return attr, errors.New("expected legacy gas reading")
		}
		attr.Value, _, err = decodeDecimal(groups[len(groups)-1])
		attr.Unit = groups[5]
	}
	return attr, err
}

func splitUnit(s string) (string, string) {
	value, unit, _ := strings.Cut(s, "*")
	return value, unit
}

func decodeInt(s string) (string, string, error) {
	value, unit := splitUnit(s)
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return "", "", err
	}
	return strconv.FormatInt(n, 10), unit, nil
}

// decodeDecimal drops leading zeros and keeps the reported precision.
func decodeDecimal(s string) (string, string, error) {
	value, unit := splitUnit(s)
	r, ok := new(big.Rat).SetString(value)
	if !ok {
		return "", "", fmt.Errorf("invalid decimal %q", value)
	}
	prec := 0
	if _, frac, found := strings.Cut(value, "."); found {
		prec = len(frac)
	}
	return r.FloatString(prec), unit, nil
}

// decodeTimestamp reads YYMMDDhhmmss followed by S (summer) or W (winter) time.
func decodeTimestamp(s string) (string, error) {
	if len(s) != 13 {
		return "", fmt.Errorf("invalid timestamp %q", s)
	}
	offset := 1
	if s[12] == 'S' {
		offset = 2
	}
	loc := time.FixedZone("", offset*60*60)
	t, err := time.ParseInLocation("060102150405", s[:12], loc)
	if err != nil {
		return "", err
	}
	return t.Format(time.RFC3339), nil
}
