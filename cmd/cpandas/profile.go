package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
)

// profiler writes pprof CPU and heap profiles around one command.
type profiler struct {
	cpuFile string
	memFile string
	cpu     *os.File
}

func (p *profiler) start() error {
	if p.cpuFile == "" {
		return nil
	}
	f, err := os.Create(p.cpuFile)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create CPU profile").WithDetail("path", p.cpuFile)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return errors.Wrap(err, errors.CodeIO, "start CPU profile")
	}
	p.cpu = f
	logger.Debug("CPU profiling enabled", zap.String("path", p.cpuFile))
	return nil
}

func (p *profiler) stop() error {
	if p.cpu != nil {
		pprof.StopCPUProfile()
		err := p.cpu.Close()
		p.cpu = nil
		if err != nil {
			return errors.Wrap(err, errors.CodeIO, "close CPU profile")
		}
	}
	if p.memFile == "" {
		return nil
	}
	f, err := os.Create(p.memFile)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create memory profile").WithDetail("path", p.memFile)
	}
	defer f.Close()

	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		return errors.Wrap(err, errors.CodeIO, "write memory profile")
	}
	logger.Debug("memory profile written", zap.String("path", p.memFile))
	return nil
}
