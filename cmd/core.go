/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"github.com/studio0rpiment/wayside/correction"
	"github.com/studio0rpiment/wayside/events"
	"github.com/studio0rpiment/wayside/geo/projector"
	"github.com/studio0rpiment/wayside/params"
	"github.com/studio0rpiment/wayside/recognition"
	"github.com/studio0rpiment/wayside/registry"
	"github.com/studio0rpiment/wayside/resolver"
	"github.com/studio0rpiment/wayside/route"
	"log/slog"
	"os"
)

// core is one tour's positioning stack, wired the same way for every command.
type core struct {
	route     *route.Route
	projector *projector.Projector
	debug     *events.DebugMode
	oracle    *correction.Table
	store     *correction.Store
	registry  *registry.Registry
	resolver  *resolver.Resolver
	refiner   *recognition.Refiner
}

// openCore loads the configured route and builds a resolver over it.
// With persist, trained corrections are read from and written to the datadir.
func openCore(debug, persist bool) (*core, error) {
	routePath := viper.GetString("route")
	if routePath == "" {
		return nil, errors.New("no route file, use --route")
	}
	routePath = expandPath(routePath)

	rt, err := route.LoadFile(routePath)
	if err != nil {
		return nil, err
	}
	c := &core{
		route:     rt,
		projector: projector.New(rt.Boundary, nil),
		debug:     events.NewDebugMode(debug),
		oracle:    correction.NewTable(nil),
	}

	if persist {
		datadir := expandPath(viper.GetString("datadir"))
		if err := os.MkdirAll(datadir, 0755); err != nil {
			return nil, fmt.Errorf("create datadir: %w", err)
		}
		c.store, err = correction.OpenStore(datadir)
		if err != nil {
			return nil, err
		}
		if err := c.oracle.LoadFrom(c.store); err != nil {
			_ = c.store.Close()
			return nil, err
		}
	}

	c.registry = registry.New(c.projector, c.oracle, nil, c.debug)
	n, err := c.registry.LoadSource(route.FileSource{Path: routePath})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	slog.Info("Loaded route", "path", routePath, "anchors", n, "origin", c.projector.Origin())

	c.resolver = resolver.New(c.projector, c.registry, c.debug, positioningConfig())
	c.refiner = recognition.NewRefiner(recognition.Reported, params.DefaultRecognitionConfig())
	return c, nil
}

func (c *core) Close() error {
	if c.resolver != nil {
		c.resolver.Close()
	}
	if c.registry != nil {
		c.registry.Close()
	}
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
