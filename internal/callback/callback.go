// Package callback encodes typed button intents into platform callback data and back.
package callback

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

// MaxDataLen is the platform limit for callback data.
const MaxDataLen = 64

const separator = "|"

type Kind string

const (
	KindToggle  Kind = "t"
	KindMute    Kind = "m"
	KindBan     Kind = "b"
	KindResolve Kind = "r"
)

func (k Kind) valid() bool {
	switch k {
	case KindToggle, KindMute, KindBan, KindResolve:
		return true
	}
	return false
}

// Command is a decoded button intent.
type Command struct {
	Kind     Kind
	ChatID   int64
	TargetID int64
	Payload  string
}

func Encode(cmd Command) (string, error) {
	if !cmd.Kind.valid() {
		return "", fmt.Errorf("unknown callback kind %q", cmd.Kind)
	}
	if cmd.TargetID < 0 {
		return "", fmt.Errorf("negative target id")
	}
	if strings.Contains(cmd.Payload, separator) {
		return "", fmt.Errorf("payload contains separator")
	}
	data := strings.Join([]string{
		string(cmd.Kind),
		encodeChatID(cmd.ChatID),
		encodeUint64Min(uint64(cmd.TargetID)),
		cmd.Payload,
	}, separator)
	if len(data) > MaxDataLen {
		return "", fmt.Errorf("callback data too long: %d", len(data))
	}
	return data, nil
}

func Decode(data string) (Command, error) {
	parts := strings.Split(data, separator)
	if len(parts) != 4 {
		return Command{}, fmt.Errorf("malformed callback data")
	}
	kind := Kind(parts[0])
	if !kind.valid() {
		return Command{}, fmt.Errorf("unknown callback kind %q", parts[0])
	}
	chatID, err := decodeChatID(parts[1])
	if err != nil {
		return Command{}, err
	}
	target, err := decodeUint64Min(parts[2])
	if err != nil {
		return Command{}, err
	}
	return Command{
		Kind:     kind,
		ChatID:   chatID,
		TargetID: int64(target),
		Payload:  parts[3],
	}, nil
}

func encodeChatID(chatID int64) string {
	negative := chatID < 0
	if negative {
		chatID = -chatID
	}
	encoded := encodeUint64Min(uint64(chatID))
	if negative {
		return "~" + encoded
	}
	return encoded
}

func decodeChatID(value string) (int64, error) {
	negative := strings.HasPrefix(value, "~")
	value = strings.TrimPrefix(value, "~")
	id, err := decodeUint64Min(value)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id: %w", err)
	}
	if negative {
		return -int64(id), nil
	}
	return int64(id), nil
}

func encodeUint64Min(value uint64) string {
	if value == 0 {
		return base64.RawURLEncoding.EncodeToString([]byte{0})
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	i := 0
	for i < len(buf) && buf[i] == 0 {
		i++
	}
	return base64.RawURLEncoding.EncodeToString(buf[i:])
}

func decodeUint64Min(value string) (uint64, error) {
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	if len(data) == 0 || len(data) > 8 {
		return 0, fmt.Errorf("invalid id length")
	}
	if len(data) < 8 {
		padded := make([]byte, 8-len(data))
		data = append(padded, data...)
	}
	return binary.BigEndian.Uint64(data), nil
}
