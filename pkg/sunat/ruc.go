package sunat

import (
	"fmt"
	"unicode"
)

// pesos para el cálculo del dígito verificador del RUC (módulo 11, SUNAT).
// Se aplican a los 10 primeros dígitos del RUC, de izquierda a derecha.
var rucWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// ValidateRUC valida que el RUC tenga 11 dígitos, un prefijo de contribuyente
// conocido (10, 15, 17 o 20) y un dígito verificador correcto según el
// algoritmo módulo 11 de SUNAT. ruc puede venir con espacios o guiones.
func ValidateRUC(ruc string) error {
	digits := extractDigits(ruc)
	if len(digits) != 11 {
		return fmt.Errorf("sunat: el RUC debe tener 11 dígitos, se encontraron %d", len(digits))
	}
	prefix := string(digits[:2])
	switch prefix {
	case "10", "15", "17", "20":
	default:
		return fmt.Errorf("sunat: prefijo de RUC desconocido %q (se esperaba 10, 15, 17 o 20)", prefix)
	}
	expected, err := ComputeRUCCheckDigit(string(digits[:10]))
	if err != nil {
		return err
	}
	if digits[10] != expected {
		return fmt.Errorf("sunat: dígito verificador del RUC inválido: esperado %c, recibido %c", expected, digits[10])
	}
	return nil
}

// ComputeRUCCheckDigit calcula el dígito verificador para los 10 primeros
// dígitos del RUC. Útil para completar el RUC antes de registrarlo.
func ComputeRUCCheckDigit(ruc string) (byte, error) {
	digits := extractDigits(ruc)
	if len(digits) < 10 {
		return 0, fmt.Errorf("sunat: se requieren al menos 10 dígitos para calcular el dígito verificador, se encontraron %d", len(digits))
	}
	base := digits[:10]
	var sum int
	for i, d := range base {
		sum += int(d-'0') * rucWeights[i]
	}
	switch r := 11 - sum%11; r {
	case 10:
		return '0', nil
	case 11:
		return '1', nil
	default:
		return byte('0' + r), nil
	}
}

// ValidateDNI valida que el DNI tenga exactamente 8 dígitos.
func ValidateDNI(dni string) error {
	digits := extractDigits(dni)
	if len(digits) != 8 {
		return fmt.Errorf("sunat: el DNI debe tener 8 dígitos, se encontraron %d", len(digits))
	}
	return nil
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
