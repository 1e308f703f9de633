// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_MissingSchema(t *testing.T) {
	s, err := New("io.furios.gesture.does-not-exist")
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestSettings(t *testing.T) {
	s, err := New(DefaultSchema)
	if err != nil {
		t.Skip("schema not installed:", err)
	}
	defer s.Close()

	assert.NotPanics(t, func() {
		s.WakeEnabled()
		s.TiltEnabled()
	})

	s.Close()
	assert.Nil(t, s.gs)
}
