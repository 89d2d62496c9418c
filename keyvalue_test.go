// Copyright (c) The ApeGears Authors
// SPDX-License-Identifier: MPL-2.0

package apegears

import (
	"testing"

	"github.com/shoenig/test/must"
)

func TestKeyValueConverter(t *testing.T) {
	conv := KeyValueConverter(nil, nil, "=")

	v, err := conv("a=1")
	must.NoError(t, err)
	must.Eq(t, KeyValue{Key: "a", Value: "1"}, v.(KeyValue))

	v, err = conv("a=b=c")
	must.NoError(t, err)
	must.Eq(t, KeyValue{Key: "a", Value: "b=c"}, v.(KeyValue))

	v, err = conv("a=")
	must.NoError(t, err)
	must.Eq(t, KeyValue{Key: "a", Value: ""}, v.(KeyValue))

	_, err = conv("nodelim")
	must.Error(t, err)
	must.StrContains(t, err.Error(), "expected KEY=VALUE")
}

func TestKeyValueConverter_Typed(t *testing.T) {
	conv := KeyValueConverter(String, Int, ":")

	v, err := conv("depth:4")
	must.NoError(t, err)
	must.Eq(t, KeyValue{Key: "depth", Value: 4}, v.(KeyValue))

	_, err = conv("depth:x")
	must.Error(t, err)
	must.StrContains(t, err.Error(), "bad value")
}

func TestKeyValueConverter_BadKey(t *testing.T) {
	conv := KeyValueConverter(Int, String, "=")

	_, err := conv("x=1")
	must.Error(t, err)
	must.StrContains(t, err.Error(), "bad key")
}
