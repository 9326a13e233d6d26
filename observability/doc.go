// Package observability provides OpenTelemetry tracing and metrics for runs.
//
// Every executed unit gets one span and a set of metric updates:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("testkit"))
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("testkit"))
//	ctx, scope := observability.StartUnit(ctx, nil, metrics, observability.UnitInfo{RunID: id, Unit: "create_post"})
//	defer scope.End(ctx, "passed", nil, nil)
//
// Without InitTracer/InitMeter the global no-op providers are used, so
// instrumentation costs nothing when nobody is collecting.
package observability
