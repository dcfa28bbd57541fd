package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/azfinis/promoconsig/internal/client/models"
)

// chooseRegistration lists the candidates and reads the user's pick. It
// returns ok=false when the user cancels with "c" or an empty line. Invalid
// input is re-prompted.
func chooseRegistration(reader *bufio.Reader, w io.Writer, candidates []models.CandidateRegistration) (code string, ok bool, err error) {
	fmt.Fprintln(w, "Selecione a matrícula:")
	for i, c := range candidates {
		fmt.Fprintf(w, "  %d) %s\n", i+1, c.RegistrationCode)
	}

	for {
		answer, err := getSimpleText(reader, "Número da matrícula (c para cancelar)", w)
		if err != nil {
			return "", false, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer == "" || answer == "c" {
			return "", false, nil
		}

		n, convErr := strconv.Atoi(answer)
		if convErr == nil && n >= 1 && n <= len(candidates) {
			return candidates[n-1].RegistrationCode, true, nil
		}
		fmt.Fprintf(w, "Opção inválida: %q\n", answer)
	}
}
