package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	sdklogging "github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/logging/api"
)

var installSDK sync.Once

// InstallSDKLogger routes fabric-sdk-go logging through logger. The SDK only
// accepts one provider per process, so later calls are ignored.
func InstallSDKLogger(logger *slog.Logger) {
	installSDK.Do(func() {
		sdklogging.Initialize(NewSDKProvider(logger))
	})
}

// SDKProvider adapts slog to the SDK's logger provider.
type SDKProvider struct {
	logger *slog.Logger
}

// NewSDKProvider builds a provider whose loggers tag records with the SDK module.
func NewSDKProvider(logger *slog.Logger) *SDKProvider {
	return &SDKProvider{logger: logger}
}

// GetLogger returns a logger for an SDK module.
func (p *SDKProvider) GetLogger(module string) api.Logger {
	return &sdkLogger{logger: p.logger.With(slog.String("module", module))}
}

type sdkLogger struct {
	logger *slog.Logger
}

func (l *sdkLogger) log(level slog.Level, msg string) {
	if !l.logger.Enabled(context.Background(), level) {
		return
	}
	l.logger.Log(context.Background(), level, strings.TrimSuffix(msg, "\n"))
}

func (l *sdkLogger) Fatal(v ...interface{}) {
	l.log(slog.LevelError, fmt.Sprint(v...))
	os.Exit(1)
}

func (l *sdkLogger) Fatalf(format string, v ...interface{}) {
	l.log(slog.LevelError, fmt.Sprintf(format, v...))
	os.Exit(1)
}

func (l *sdkLogger) Fatalln(v ...interface{}) {
	l.log(slog.LevelError, fmt.Sprintln(v...))
	os.Exit(1)
}

func (l *sdkLogger) Panic(v ...interface{}) {
	msg := fmt.Sprint(v...)
	l.log(slog.LevelError, msg)
	panic(msg)
}

func (l *sdkLogger) Panicf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.log(slog.LevelError, msg)
	panic(msg)
}

func (l *sdkLogger) Panicln(v ...interface{}) {
	msg := fmt.Sprintln(v...)
	l.log(slog.LevelError, msg)
	panic(msg)
}

func (l *sdkLogger) Print(v ...interface{})   { l.log(slog.LevelInfo, fmt.Sprint(v...)) }
func (l *sdkLogger) Println(v ...interface{}) { l.log(slog.LevelInfo, fmt.Sprintln(v...)) }
func (l *sdkLogger) Printf(format string, v ...interface{}) {
	l.log(slog.LevelInfo, fmt.Sprintf(format, v...))
}

func (l *sdkLogger) Debug(args ...interface{})   { l.log(slog.LevelDebug, fmt.Sprint(args...)) }
func (l *sdkLogger) Debugln(args ...interface{}) { l.log(slog.LevelDebug, fmt.Sprintln(args...)) }
func (l *sdkLogger) Debugf(format string, args ...interface{}) {
	l.log(slog.LevelDebug, fmt.Sprintf(format, args...))
}

func (l *sdkLogger) Info(args ...interface{})   { l.log(slog.LevelInfo, fmt.Sprint(args...)) }
func (l *sdkLogger) Infoln(args ...interface{}) { l.log(slog.LevelInfo, fmt.Sprintln(args...)) }
func (l *sdkLogger) Infof(format string, args ...interface{}) {
	l.log(slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (l *sdkLogger) Warn(args ...interface{})   { l.log(slog.LevelWarn, fmt.Sprint(args...)) }
func (l *sdkLogger) Warnln(args ...interface{}) { l.log(slog.LevelWarn, fmt.Sprintln(args...)) }
func (l *sdkLogger) Warnf(format string, args ...interface{}) {
	l.log(slog.LevelWarn, fmt.Sprintf(format, args...))
}

func (l *sdkLogger) Error(args ...interface{})   { l.log(slog.LevelError, fmt.Sprint(args...)) }
func (l *sdkLogger) Errorln(args ...interface{}) { l.log(slog.LevelError, fmt.Sprintln(args...)) }
func (l *sdkLogger) Errorf(format string, args ...interface{}) {
	l.log(slog.LevelError, fmt.Sprintf(format, args...))
}
