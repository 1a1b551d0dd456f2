package pipeline

import "github.com/banshee-data/presence.report/internal/monitoring"

func opsf(format string, args ...interface{}) {
	monitoring.Opsf("[pipeline] "+format, args...)
}

func diagf(format string, args ...interface{}) {
	monitoring.Diagf("[pipeline] "+format, args...)
}

func tracef(format string, args ...interface{}) {
	monitoring.Tracef("[pipeline] "+format, args...)
}
