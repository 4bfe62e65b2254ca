package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxDeviceID
	ctxDeviceRole
)

func WithIdentity(ctx context.Context, userID, deviceID, deviceRole string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxDeviceID, deviceID)
	ctx = context.WithValue(ctx, ctxDeviceRole, deviceRole)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func DeviceID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxDeviceID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("device_id not in context")
}

func DeviceRole(ctx context.Context) (string, error) {
	v := ctx.Value(ctxDeviceRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("device_role not in context")
}
