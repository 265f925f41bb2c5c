// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package ion

import (
	"testing"

	"github.com/galvanized-logic/ion/asset"
)

func TestAddTextureParameterAssignsLowestClearedSlot(t *testing.T) {
	mat := NewMaterial("// shader")
	slot0, err := mat.AddTextureParameter("Albedo", asset.GUID{1})
	if err != nil || slot0 != 0 {
		t.Fatalf("slot0 = %d, err = %v; want 0, nil", slot0, err)
	}
	slot1, err := mat.AddTextureParameter("Normal", asset.GUID{2})
	if err != nil || slot1 != 1 {
		t.Fatalf("slot1 = %d, err = %v; want 1, nil", slot1, err)
	}
}

func TestAddTextureParameterFailsPastSixteenSlots(t *testing.T) {
	mat := NewMaterial("// shader")
	for i := 0; i < maxTextureSlots; i++ {
		if _, err := mat.AddTextureParameter("tex", asset.GUID{byte(i)}); err != nil {
			t.Fatalf("unexpected error on slot %d: %v", i, err)
		}
	}
	if _, err := mat.AddTextureParameter("overflow", asset.GUID{99}); err == nil {
		t.Fatal("expected an error once 16 texture slots are in use")
	}
}

func TestUniformOrderPutsVectorsBeforeScalars(t *testing.T) {
	mat := NewMaterial("// shader")
	mat.AddScalarParameter("roughness", 0.5, 0, 1)
	mat.AddVectorParameter("tint", [4]float32{1, 1, 1, 1}, [4]float32{}, [4]float32{1, 1, 1, 1})
	mat.AddScalarParameter("metallic", 0, 0, 1)

	params := mat.Parameters()
	order := mat.UniformOrder()
	if len(order) != 3 {
		t.Fatalf("expected 3 uniform-buffer entries, got %d", len(order))
	}
	if params[order[0]].Kind != ParamVector {
		t.Fatalf("expected the vector parameter first, got kind %v", params[order[0]].Kind)
	}
	for _, idx := range order[1:] {
		if params[idx].Kind != ParamScalar {
			t.Fatalf("expected only scalars after the vector, got kind %v", params[idx].Kind)
		}
	}
}
