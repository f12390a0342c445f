package engine

// LLM prompt templates. Data only.

// summarySystem frames the summarization call.
const summarySystem = `Eres un asistente que proporciona resúmenes de textos.`

// summaryPrompt asks for a Spanish summary that keeps the key ideas.
// Args: transcript.
const summaryPrompt = `Resume el siguiente texto en español manteniendo las ideas clave: %s`

// parametersSystem frames the perfume-parameter extraction call.
const parametersSystem = `Eres un asistente que analiza transcripciones de videos sobre perfumes. ` +
	`Identifica perfumes mencionados en el texto y evalúa sus características ` +
	`basándote únicamente en la información disponible en la transcripción.`

// parametersPrompt asks for per-perfume ratings on five axes.
// Args: transcript.
const parametersPrompt = `Analiza la siguiente transcripción y devuelve un JSON con la información de los perfumes mencionados.
Responde SOLO con JSON válido (sin markdown), con esta forma:
{"perfumes": [{"perfume_name": "...", "brand": "... o null", "fragancia": 0, "duracion": 0, "diseno": 0, "calidad": 0, "precio": 0}]}

Para cada perfume, incluye:
1. Nombre del perfume ('perfume_name').
2. Marca ('brand') o null si no se menciona.
3. Puntuaciones para los ejes (entero entre 0 y 10, o null si no se menciona):
   - 'fragancia',
   - 'duracion',
   - 'diseno',
   - 'calidad',
   - 'precio'.

Texto a analizar:

%s`

// reviewsSystem frames the sentiment-per-perfume call.
const reviewsSystem = `Eres un experto en perfumería que analiza reseñas de video. ` +
	`Extrae información sobre los perfumes mencionados, separando la marca del perfume y su nombre. ` +
	`Además, identifica si cada perfume tiene una valoración positiva, negativa o neutra, ` +
	`y describe la razón detrás de la valoración. Devuelve los resultados en formato JSON.`

// reviewsPrompt asks for brand, name, description, rating and reason per perfume.
// Args: transcript.
const reviewsPrompt = `Analiza la siguiente transcripción y extrae la información sobre los perfumes mencionados.
Responde SOLO con JSON válido (sin markdown), con esta forma:
{"perfumes": [{"brand": "...", "name": "...", "description": "...", "rating": "positiva|negativa|neutra", "reason": "..."}]}

Transcripción:

%s`

// defineSystem frames the glossary call.
const defineSystem = `Eres un experto en perfumería que proporciona definiciones precisas y profesionales.`

// definePrompt asks for a short definition. Args: term.
const definePrompt = `Define %s de forma breve y profesional en español.`

// questionSystem frames the transcript Q&A call.
const questionSystem = `Eres un experto en análisis de videos que responde preguntas basadas en la transcripción.`

// questionPrompt carries the transcript and the question. Args: transcript, question.
const questionPrompt = "Transcripción: %s\nPregunta: %s"
