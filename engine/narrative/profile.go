package narrative

import (
	"fmt"
	"sort"
	"text/template"
)

// Profile names.
const (
	ProfileGPT35    = "gpt-3.5"
	ProfileClaudeV2 = "claude-v2"
)

// Profile parameterizes one model family: which model to call, how long
// the narrative may be and which prompt template frames it.
type Profile struct {
	Name string
	// Provider is the generation backend that serves Model.
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float32
	Template    string
}

const epicTemplate = `Contexto:
{{.Context}}

Você é um contador de histórias experiente no universo de Star Wars. Com base no contexto fornecido, que pode conter traços de personalidade dos personagens e informações canônicas do catálogo, crie uma narrativa de aventura épica que siga uma jornada clara:

1. Apresente o protagonista e o conflito ou missão que o impulsiona.
2. Descreva os desafios e reviravoltas que ele enfrenta, mostrando como os traços de personalidade moldam suas decisões e relações com os demais personagens.
3. Conduza a narrativa a um ponto de alta tensão, em que o herói enfrenta uma escolha crítica ou um desafio decisivo.
4. Conclua a jornada com uma resolução que evidencie a transformação do personagem e o impacto da aventura.

Não identifique nem rotule estas partes no texto. Escreva sempre em português, qualquer que seja o idioma dos nomes, e use cada nome exatamente como está escrito abaixo.

Elementos para incorporar:
- Personagens: {{.Characters}}
- Planetas: {{.Planets}}
- Naves: {{.Ships}}

Priorize o enredo e a evolução dos personagens, evitando descrições longas de cenário que não façam a história avançar. Garanta um fluxo coerente e um desfecho satisfatório para os conflitos apresentados.`

const shortTemplate = `Você é um narrador de histórias de Star Wars. Use o contexto fornecido para criar uma história envolvente.

Contexto sobre os elementos:
{{.Context}}

Elementos que devem aparecer na história, escritos exatamente assim:
- Personagens: {{.Characters}}
- Planetas: {{.Planets}}
- Naves: {{.Ships}}

Crie uma história emocionante em português que tenha entre 3 e 4 parágrafos, use todos os elementos fornecidos e seja fiel ao universo Star Wars. A história deve seguir esta jornada:

1. Apresente o protagonista e o conflito ou missão que o impulsiona.
2. Mostre as complicações que ele enfrenta e como os traços de personalidade moldam suas decisões.
3. Leve a história a um momento de alta tensão em que o herói enfrenta uma escolha crítica ou um desafio decisivo.
4. Termine com uma resolução que evidencie a transformação do personagem.

Não identifique nem rotule estas partes no texto.

História:`

var profiles = map[string]Profile{
	ProfileGPT35: {
		Name:        ProfileGPT35,
		Provider:    "openai",
		Model:       "gpt-3.5-turbo",
		MaxTokens:   2500,
		Temperature: 0.7,
		Template:    epicTemplate,
	},
	ProfileClaudeV2: {
		Name:        ProfileClaudeV2,
		Provider:    "bedrock",
		Model:       "anthropic.claude-v2",
		MaxTokens:   1000,
		Temperature: 0.7,
		Template:    shortTemplate,
	},
}

// LookupProfile returns a copy of the named built-in profile.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// ProfileNames lists the built-in profiles.
func ProfileNames() []string {
	out := make([]string, 0, len(profiles))
	for n := range profiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (p Profile) parse() (*template.Template, error) {
	t, err := template.New(p.Name).Option("missingkey=error").Parse(p.Template)
	if err != nil {
		return nil, fmt.Errorf("narrative: parse template %q: %w", p.Name, err)
	}
	return t, nil
}
