package tutor

import (
	"reflect"
	"testing"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name            string
		raw             string
		wantReply       string
		wantSuggestions []string
	}{
		{
			name:      "numbered section",
			raw:       "Explicación.\n---SUGERENCIAS---\n1. Resuelve el ejercicio de suma\n2. corto\n3. Lee sobre tipos de datos",
			wantReply: "Explicación.",
			wantSuggestions: []string{
				"Resuelve el ejercicio de suma",
				"Lee sobre tipos de datos",
			},
		},
		{
			name:            "empty section falls back to keywords",
			raw:             "Un bucle for repite código.\n---SUGERENCIAS---\nnada útil",
			wantReply:       "Un bucle for repite código.",
			wantSuggestions: []string{"Practica con diferentes tipos de bucles (for, while, do-while)"},
		},
		{
			name:      "inline suggestions without separator",
			raw:       "Te sugiero revisar cómo funcionan los operadores lógicos. También puedes escribir pruebas para cada caso!",
			wantReply: "Te sugiero revisar cómo funcionan los operadores lógicos. También puedes escribir pruebas para cada caso!",
			wantSuggestions: []string{
				"revisar cómo funcionan los operadores lógicos.",
				"escribir pruebas para cada caso!",
			},
		},
		{
			name:      "generic fallback",
			raw:       "  Hola, ¿en qué te ayudo?  ",
			wantReply: "Hola, ¿en qué te ayudo?",
			wantSuggestions: []string{
				"Intenta resolver ejercicios prácticos sobre este tema",
				"Revisa la documentación oficial para profundizar",
				"Practica escribiendo código simple relacionado con lo aprendido",
			},
		},
		{
			name:      "keyword fallback capped at three",
			raw:       "Una función recursiva con una variable y un array.",
			wantReply: "Una función recursiva con una variable y un array.",
			wantSuggestions: []string{
				"Intenta crear tus propias funciones con diferentes parámetros",
				"Practica con ejemplos de recursión como factorial o Fibonacci",
				"Experimenta declarando variables de diferentes tipos",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, suggestions := ParseReply(tt.raw)
			if reply != tt.wantReply {
				t.Errorf("reply = %q, want %q", reply, tt.wantReply)
			}
			if !reflect.DeepEqual(suggestions, tt.wantSuggestions) {
				t.Errorf("suggestions = %q, want %q", suggestions, tt.wantSuggestions)
			}
		})
	}
}
